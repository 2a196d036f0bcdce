package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// newConfigStore opens the settings file. Tests replace it.
var newConfigStore = func(dir string) (driven.ConfigStore, error) {
	return file.NewConfigStore(dir)
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage configuration",
	Long:        `View and change the settings stored in config.toml.`,
	Annotations: map[string]string{annotationNoServices: ""},
	RunE:        runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoServices: ""},
	RunE:        runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the current settings to the config file",
	Long:        `Write the loaded settings, with every default filled in, to config.toml.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoServices: ""},
	RunE:        runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting and save it. Pass "-" as the value of
embedding.api_key to type it without echo.

Keys: ` + strings.Join(settingKeys(), ", "),
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{annotationNoServices: ""},
	RunE:        runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func openConfig() (driven.ConfigStore, domain.Settings, error) {
	store, err := newConfigStore(configDir)
	if err != nil {
		return nil, domain.Settings{}, err
	}
	loaded, err := store.Load()
	if err != nil {
		return nil, domain.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return store, loaded, nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	store, s, err := openConfig()
	if err != nil {
		return err
	}

	cmd.Printf("Config: %s\n\n", store.Path())

	cmd.Println("[Chunker]")
	cmd.Printf("  Max tokens: %d\n", s.Chunker.MaxTokens)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", s.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", s.Embedding.Model)
	if s.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", s.Embedding.BaseURL)
	}
	if s.Embedding.Provider.RequiresAPIKey() {
		if s.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(s.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	cmd.Printf("  Dimensions: %d\n", s.Embedding.Dimensions)
	cmd.Printf("  Batch size: %d\n", s.Embedding.BatchSize)
	cmd.Printf("  Cache size: %d\n", s.Embedding.CacheSize)
	status := "configured"
	if !s.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Store]")
	dir := s.Store.DataDir
	if dir == "" {
		dir = "(default)"
	}
	cmd.Printf("  Data dir: %s\n", dir)
	cmd.Printf("  Re-embed policy: %s\n", s.Store.ReembedPolicy)
	cmd.Printf("  Concurrency: %d\n", s.Store.Concurrency)
	cmd.Println()

	cmd.Println("[Search]")
	cmd.Printf("  Default limit: %d\n", s.Search.DefaultLimit)
	cmd.Printf("  Default threshold: %g\n", s.Search.DefaultThreshold)
	cmd.Printf("  Index: %s\n", s.Search.Index)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	store, s, err := openConfig()
	if err != nil {
		return err
	}
	if err := store.Save(s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Wrote %s\n", store.Path())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	setter, ok := settingSetters[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	store, s, err := openConfig()
	if err != nil {
		return err
	}

	if value == stdinArg && key == "embedding.api_key" {
		value, err = readSecret(cmd)
		if err != nil {
			return err
		}
	}
	if err := setter(&s, value); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if err := store.Save(s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Printf("Set %s\n", key)
	return nil
}

// readSecret reads one line without echo when stdin is a terminal.
func readSecret(cmd *cobra.Command) (string, error) {
	cmd.Print("Value: ")
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read value: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

type settingSetter func(s *domain.Settings, value string) error

func setInt(dst func(*domain.Settings) *int) settingSetter {
	return func(s *domain.Settings, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*dst(s) = n
		return nil
	}
}

func setFloat(dst func(*domain.Settings) *float64) settingSetter {
	return func(s *domain.Settings, value string) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*dst(s) = f
		return nil
	}
}

func setString(dst func(*domain.Settings) *string) settingSetter {
	return func(s *domain.Settings, value string) error {
		*dst(s) = value
		return nil
	}
}

// settingSetters maps config.toml keys to the field they change.
// Values are validated when the settings are saved.
var settingSetters = map[string]settingSetter{
	"chunker.max_tokens": setInt(func(s *domain.Settings) *int { return &s.Chunker.MaxTokens }),

	"embedding.provider": func(s *domain.Settings, value string) error {
		s.Embedding.Provider = domain.AIProvider(value)
		return nil
	},
	"embedding.model":               setString(func(s *domain.Settings) *string { return &s.Embedding.Model }),
	"embedding.base_url":            setString(func(s *domain.Settings) *string { return &s.Embedding.BaseURL }),
	"embedding.api_key":             setString(func(s *domain.Settings) *string { return &s.Embedding.APIKey }),
	"embedding.dimensions":          setInt(func(s *domain.Settings) *int { return &s.Embedding.Dimensions }),
	"embedding.batch_size":          setInt(func(s *domain.Settings) *int { return &s.Embedding.BatchSize }),
	"embedding.cache_size":          setInt(func(s *domain.Settings) *int { return &s.Embedding.CacheSize }),
	"embedding.requests_per_second": setFloat(func(s *domain.Settings) *float64 { return &s.Embedding.RequestsPerSecond }),
	"embedding.timeout_seconds":     setInt(func(s *domain.Settings) *int { return &s.Embedding.TimeoutSeconds }),

	"store.data_dir": setString(func(s *domain.Settings) *string { return &s.Store.DataDir }),
	"store.reembed_policy": func(s *domain.Settings, value string) error {
		s.Store.ReembedPolicy = domain.ReembedPolicy(value)
		return nil
	},
	"store.concurrency": setInt(func(s *domain.Settings) *int { return &s.Store.Concurrency }),

	"search.default_limit":     setInt(func(s *domain.Settings) *int { return &s.Search.DefaultLimit }),
	"search.default_threshold": setFloat(func(s *domain.Settings) *float64 { return &s.Search.DefaultThreshold }),
}

func settingKeys() []string {
	keys := make([]string, 0, len(settingSetters))
	for k := range settingSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
