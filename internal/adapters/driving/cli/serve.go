package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/adapters/driving/api"
	"github.com/custodia-labs/groundwork/internal/adapters/driving/mcp"
)

var (
	serveAddr  string
	serveNoMCP bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query server",
	Long: `Serves the query pipeline over HTTP:

  POST /v1/query            answer a question
  POST /v1/query/selection  answer a question about selected text
  POST /v1/ingest           re-ingest the source directory
  GET  /healthz             collection status
  /mcp                      MCP streamable HTTP endpoint

The listen address defaults to server.addr from the settings.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr setting)")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := wire(needAnswers | needRetrieval | needCatalog); err != nil {
		return err
	}
	if queryService == nil {
		return errors.New("query service not configured")
	}

	addr := serveAddr
	if addr == "" {
		settings, err := settingsService.Get()
		if err != nil {
			return err
		}
		addr = settings.Server.Addr
	}

	opts := []api.Option{api.WithIngestion(ingestService)}
	if !serveNoMCP {
		server, err := mcp.NewServer(&mcp.Ports{
			Query:     queryService,
			Retriever: retriever,
			Ingestion: ingestService,
		})
		if err != nil {
			return err
		}
		opts = append(opts, api.WithMCP(server.Handler()))
	}

	cmd.Printf("Listening on http://%s\n", addr)
	return api.NewServer(queryService, opts...).Run(cmd.Context(), addr)
}
