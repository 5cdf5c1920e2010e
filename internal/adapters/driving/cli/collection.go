package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

var documentsModule string

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Inspect the vector index",
	Long:  `Show the configured collection and the documents ingested into it.`,
}

var collectionInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show collection configuration and size",
	Args:  cobra.NoArgs,
	RunE:  runCollectionInfo,
}

var collectionDocumentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runCollectionDocuments,
}

func init() {
	collectionDocumentsCmd.Flags().StringVarP(&documentsModule, "module", "m", "", "only list documents in this module")
	collectionCmd.AddCommand(collectionInfoCmd)
	collectionCmd.AddCommand(collectionDocumentsCmd)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionInfo(cmd *cobra.Command, _ []string) error {
	if err := wire(needCatalog); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingestion service not configured")
	}

	info, err := ingestService.Collection(cmd.Context())
	if errors.Is(err, domain.ErrNotFound) {
		cmd.Println("Collection does not exist yet. Run 'groundwork ingest' first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read collection: %w", err)
	}

	cmd.Printf("Name:           %s\n", info.Config.Name)
	cmd.Printf("Dimension:      %d\n", info.Config.Dimension)
	cmd.Printf("Metric:         %s\n", info.Config.Metric)
	cmd.Printf("Model version:  %s\n", info.Config.ModelVersion)
	cmd.Printf("Entries:        %d\n", info.Entries)
	return nil
}

func runCollectionDocuments(cmd *cobra.Command, _ []string) error {
	if err := wire(needCatalog); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingestion service not configured")
	}

	records, err := ingestService.Documents(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	filtered := records[:0:0]
	for _, r := range records {
		if documentsModule == "" || r.Module == documentsModule {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].SourcePath < filtered[j].SourcePath })

	for _, r := range filtered {
		cmd.Printf("  %s\n", r.SourcePath)
		cmd.Printf("      %s, module %s, %d chunks, ingested %s\n",
			r.Title, r.Module, r.ChunkCount, r.IngestedAt.Local().Format("2006-01-02 15:04"))
	}
	cmd.Printf("\n%d documents\n", len(filtered))
	return nil
}
