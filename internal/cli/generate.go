package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"personaforge/internal/cache"
	"personaforge/internal/llm"
	"personaforge/internal/model"
	"personaforge/internal/pipeline"
	"personaforge/internal/reddit"
	"personaforge/internal/render"
)

var usernamePrefixRe = regexp.MustCompile(`^/?u(ser)?/`)

var (
	flagProvider  string
	flagModel     string
	flagOut       string
	flagJSON      string
	flagNoCache   bool
	flagNoRobots  bool
	flagTimeout   time.Duration
	flagLimit     int
	flagThreshold float64
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <username>",
	Short: "Generate a citation-grounded persona for a Reddit user",
	Long: `Generate fetches the user's public posts and comments, asks the
configured language model for a structured analysis, verifies every cited
excerpt against the actual content, and writes the persona report.

Attributes whose citations cannot be verified are dropped. A run that
grounds nothing still succeeds and produces a persona of insufficient-
evidence markers.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&flagProvider, "provider", "", "LLM provider: openai, groq, ollama")
	generateCmd.Flags().StringVar(&flagModel, "model", "", "model name (provider-specific)")
	generateCmd.Flags().StringVarP(&flagOut, "out", "o", "", "text report path (default: <username>_persona.txt)")
	generateCmd.Flags().StringVar(&flagJSON, "json", "", "also write the persona as JSON to this path")
	generateCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "bypass the fetch cache")
	generateCmd.Flags().BoolVar(&flagNoRobots, "no-robots", false, "skip robots.txt checks")
	generateCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "overall run timeout (0: provider defaults only)")
	generateCmd.Flags().IntVar(&flagLimit, "limit", 0, "max items per listing (default from config)")
	generateCmd.Flags().Float64Var(&flagThreshold, "fuzzy-threshold", 0, "min token-overlap ratio for fuzzy citation matches")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	username := usernamePrefixRe.ReplaceAllString(strings.TrimSpace(args[0]), "")
	if username == "" {
		return fmt.Errorf("empty username")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg)

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg.LLM.APIKey = resolveAPIKey(cfg.LLM.Provider)
	if cfg.LLM.Provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return err
	}

	store, err := buildCache(cfg.Cache)
	if err != nil {
		return err
	}

	client := reddit.NewClient(cfg.Reddit, cfg.RateLimit, store, cfg.Cache.TTL, log)

	ctx := cmd.Context()
	if flagTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flagTimeout)
		defer cancel()
	}

	p := pipeline.New(cfg, client, provider, log)

	persona, err := p.Generate(ctx, username)
	if err != nil {
		return fmt.Errorf("generate persona for %s: %w", username, err)
	}

	renderer := render.NewRenderer(cfg.Output.Debug)

	textPath := cfg.Output.TextPath
	if textPath == "" {
		textPath = fmt.Sprintf("%s_persona.txt", username)
	}
	if err := renderer.WriteText(persona, textPath); err != nil {
		return err
	}
	fmt.Printf("Persona written to %s\n", textPath)

	if cfg.Output.JSONPath != "" {
		if err := renderer.WriteJSON(persona, cfg.Output.JSONPath); err != nil {
			return err
		}
		fmt.Printf("JSON written to %s\n", cfg.Output.JSONPath)
	}

	d := persona.Diagnostics
	fmt.Printf("Grounded %d of %d candidate attributes (%d corpus items, %d in prompt)\n",
		d.Grounded, d.Candidates, d.CorpusSize, d.CompiledItems)
	if d.Rejected > 0 {
		fmt.Printf("Rejected %d candidates; run with --debug for details\n", d.Rejected)
	}

	return nil
}

// loadConfig merges file and environment values over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func applyFlags(cfg *model.Config) {
	if flagProvider != "" {
		cfg.LLM.Provider = flagProvider
	}
	if flagModel != "" {
		cfg.LLM.Model = flagModel
	}
	if flagOut != "" {
		cfg.Output.TextPath = flagOut
	}
	if flagJSON != "" {
		cfg.Output.JSONPath = flagJSON
	}
	if flagNoCache {
		cfg.Cache.Enabled = false
	}
	if flagNoRobots {
		cfg.Reddit.RespectRobots = false
	}
	if flagLimit > 0 {
		cfg.Reddit.Limit = flagLimit
	}
	if flagThreshold > 0 {
		cfg.Grounding.FuzzyThreshold = flagThreshold
	}
	if debug {
		cfg.Output.Debug = true
	}
}

// resolveAPIKey reads the provider's key from the conventional env vars
func resolveAPIKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "groq":
		if key := os.Getenv("GROQ_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}

// buildCache constructs the configured cache backend, or nil when disabled
func buildCache(cfg model.CacheConfig) (cache.Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	dir := cfg.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve cache dir: %w", err)
		}
		dir = filepath.Join(home, ".personaforge", "cache")
	}

	switch cfg.Backend {
	case "memory":
		return cache.NewMemoryCache(cfg.TTL, 10*time.Minute), nil
	case "disk":
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		return cache.NewDiskCache(dir, cfg.TTL), nil
	case "redis":
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		return cache.NewRedisCache(addr), nil
	case "layered", "":
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		return cache.NewLayeredCache(
			cache.NewMemoryCache(cfg.TTL, 10*time.Minute),
			cache.NewDiskCache(dir, cfg.TTL),
		), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: memory, disk, redis, layered)", cfg.Backend)
	}
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return zc.Build()
}
