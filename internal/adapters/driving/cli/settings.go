package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

// secretKeys are masked on display and prompted for without echo.
//
//nolint:gosec // G101: config key names, not credentials.
var secretKeys = []string{
	"embedding.api_key",
	"llm.api_key",
	"vector.qdrant_api_key",
	"lock.redis_password",
	"identity.jwt_secret",
}

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"settings"},
	Short:   "Manage configuration",
	Long: `View and change pdfchat's configuration.

Settings live in ~/.pdfchat/config.toml. Environment variables named
PDFCHAT_<SECTION>_<KEY> (for example PDFCHAT_LLM_API_KEY) override the file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set one configuration value",
	Long: `Set one configuration value by its dotted key, for example:

  pdfchat config set retrieval.top_k 6
  pdfchat config set chat.question_limit 100
  pdfchat config set llm.api_key

Secret values are read without echo when the value is omitted.
Run 'pdfchat config keys' to list every key.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	RunE:  runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the LLM provider",
	RunE:  runConfigLLM,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and ping both providers",
	RunE:  runConfigValidate,
}

// stdin is where interactive prompts read from.
var stdin io.Reader = os.Stdin

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displaySecret(settings.Embedding.APIKey))
	}
	cmd.Printf("  Batch size: %d\n", settings.Embedding.BatchSize)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displaySecret(settings.LLM.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Vector store]")
	cmd.Printf("  Backend: %s\n", settings.Vector.Backend)
	if settings.Vector.Backend == domain.VectorBackendQdrant {
		cmd.Printf("  Qdrant URL: %s\n", settings.Vector.QdrantURL)
		cmd.Printf("  Collection prefix: %s\n", settings.Vector.CollectionPrefix)
	}
	cmd.Println()

	cmd.Println("[Indexing]")
	cmd.Printf("  Lock: %s (ttl %s, wait %s)\n", settings.Lock.Backend, settings.Lock.TTL, settings.Lock.Wait)
	if settings.Lock.Backend == domain.LockBackendRedis {
		cmd.Printf("  Redis: %s\n", settings.Lock.RedisAddr)
	}
	cmd.Printf("  Chunks: %d characters, %d overlap\n", settings.Chunking.ChunkSize, settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Chat]")
	cmd.Printf("  Passages per question: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  History window: %d messages\n", settings.Chat.HistoryWindow)
	if settings.Chat.QuestionLimit > 0 {
		cmd.Printf("  Question limit: %d per document\n", settings.Chat.QuestionLimit)
	} else {
		cmd.Printf("  Question limit: unlimited\n")
	}
	cmd.Printf("  User: %s\n", settings.Identity.UserID)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'pdfchat config embedding' and 'pdfchat config llm' to fix provider settings.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured
	}

	key := args[0]
	secret := slices.Contains(secretKeys, key)

	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case secret:
		cmd.Printf("Enter %s: ", key)
		value = readPassword()
		cmd.Println()
	default:
		return fmt.Errorf("a value is required for %s", key)
	}

	if err := settingsService.SetValue(key, value); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("unknown key %q; run 'pdfchat config keys' to list them", key)
		}
		return err
	}

	if secret {
		value = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(stdin))
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured
	}
	return configureLLMProvider(cmd, bufio.NewReader(stdin))
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured
	}

	if err := settingsService.Validate(); err != nil {
		return err
	}

	cmd.Print("Embedding provider... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("embedding provider: %w", err)
	}
	cmd.Println("OK")

	cmd.Print("LLM provider... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("LLM provider: %w", err)
	}
	cmd.Println("OK")
	return nil
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readSecret(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", selected.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := domain.DefaultLLMModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readSecret(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n", selected.Description(), model)
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

// readSecret reads without echo from a terminal and falls back to reader.
func readSecret(reader *bufio.Reader) string {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if password, err := term.ReadPassword(int(f.Fd())); err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func readPassword() string {
	return readSecret(bufio.NewReader(stdin))
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func displaySecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return maskAPIKey(s)
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
