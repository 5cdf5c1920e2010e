package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/ai"
	"github.com/custodia-labs/groundwork/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the settings stored in config.toml: AI providers,
chunking, retrieval, the index backend and the source directory.

API keys are never stored. Each provider reads its key from the
environment variable named by embedding.api_key_env or llm.api_key_env.`,
	RunE: runSettingsList,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every setting with its effective value",
	Args:  cobra.NoArgs,
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Validates and saves a single setting, e.g.

  groundwork settings set embedding.provider openai
  groundwork settings set retrieval.score_threshold 0.45

A value that would leave the configuration invalid is rejected and the
previous value is kept.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Connect to each configured provider and the index",
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive provider setup",
	Long:  `Walks through choosing the embedding and LLM providers and models.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsList(cmd *cobra.Command, _ []string) error {
	if err := wireSettings(); err != nil {
		return err
	}

	for _, key := range settingsService.Keys() {
		value, err := settingsService.Value(key)
		if err != nil {
			return fmt.Errorf("failed to get %s: %w", key, err)
		}
		cmd.Printf("  %-28s %s\n", key, value)
	}
	cmd.Println()

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	printKeyStatus(cmd, "Embedding", settings.Embedding.Provider, settings.Embedding.APIKeyEnv, settings.Embedding.APIKey)
	printKeyStatus(cmd, "LLM", settings.LLM.Provider, settings.LLM.APIKeyEnv, settings.LLM.APIKey)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'groundwork settings set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func printKeyStatus(cmd *cobra.Command, label string, provider domain.AIProvider, env, key string) {
	if !provider.RequiresAPIKey() {
		cmd.Printf("%s API key: not required for %s\n", label, provider.Description())
		return
	}
	if env == "" {
		env = provider.DefaultAPIKeyEnv()
	}
	if key == "" {
		cmd.Printf("%s API key: %s is not set\n", label, env)
		return
	}
	cmd.Printf("%s API key: %s = %s\n", label, env, maskAPIKey(key))
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if err := wireSettings(); err != nil {
		return err
	}
	value, err := settingsService.Value(args[0])
	if err != nil {
		return err
	}
	cmd.Println(value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if err := wireSettings(); err != nil {
		return err
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	value, err := settingsService.Value(args[0])
	if err != nil {
		return err
	}
	cmd.Printf("%s = %s\n", args[0], value)
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if err := wireSettings(); err != nil {
		return err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if checker == nil {
		checker = ai.NewConfigValidator()
	}

	failed := 0
	for _, r := range checker.Check(cmd.Context(), settings) {
		if r.OK() {
			cmd.Printf("  %-10s %-40s OK\n", r.Component, r.Target)
			continue
		}
		failed++
		cmd.Printf("  %-10s %-40s FAILED: %v\n", r.Component, r.Target, r.Err)
	}
	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if err := wireSettings(); err != nil {
		return err
	}

	cmd.Println("Groundwork Settings Wizard")
	cmd.Println("==========================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureProvider(cmd, reader, "embedding", domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels()); err != nil {
		return err
	}

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	if err := configureProvider(cmd, reader, "llm", domain.AllLLMProviders(), domain.DefaultLLMModels()); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("Run 'groundwork settings check' to test the connections.")
	return nil
}

// configureProvider prompts for a provider and model and stores them
// under the given key prefix.
func configureProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	prefix string,
	providers []domain.AIProvider,
	models map[domain.AIProvider]string,
) error {
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	selected := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := models[selected]
	cmd.Printf("Model [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if err := settingsService.Set(prefix+".model", model); err != nil {
		return fmt.Errorf("failed to set %s model: %w", prefix, err)
	}
	if err := settingsService.Set(prefix+".provider", string(selected)); err != nil {
		return fmt.Errorf("failed to set %s provider: %w", prefix, err)
	}

	if selected.RequiresAPIKey() {
		cmd.Printf("Export %s before running groundwork.\n", selected.DefaultAPIKeyEnv())
	}
	cmd.Printf("%s provider configured: %s (%s)\n\n", prefix, selected.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
