package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	infisical "github.com/infisical/go-sdk"
	"gopkg.in/yaml.v3"
)

// Mode selects which pool selection strategy a run uses.
type Mode string

const (
	ModeAllowList Mode = "allowlist"
	ModeSingle    Mode = "single"
	ModePredicate Mode = "predicate"
)

// DefaultAllowList is the set of Aave pools tracked in allowlist mode.
var DefaultAllowList = []string{
	// Aave V3 stablecoins
	"aave-v3-arbitrum-usdc",
	"aave-v3-polygon-usdc",
	"aave-v3-ethereum-usdc",
	"aave-v3-optimism-usdc",
	"aave-v3-avalanche-usdc",
	"aave-v3-base-usdc",
	// Aave V3 BTC assets
	"aave-v3-ethereum-wbtc",
	"aave-v3-ethereum-cbbtc",
	"aave-v3-arbitrum-wbtc",
	// Aave V2
	"aave-v2-polygon-dai",
	"aave-v2-ethereum-dai",
}

// DefaultFetchTimeout bounds the upstream pools request.
const DefaultFetchTimeout = 15 * time.Second

// DefaultAssets are the symbol substrings matched in predicate mode.
var DefaultAssets = []string{"USDC", "USDT", "DAI", "WBTC", "CBBTC"}

type Config struct {
	Mode      Mode
	Threshold float64

	AllowList     []string
	TargetPoolID  string
	TargetChain   string
	ProjectFilter string
	Assets        []string

	DataDir      string
	APIURL       string
	FetchTimeout time.Duration
	StrictExit   bool

	LogLevel string
	LogFile  string

	Port           string
	PollInterval   time.Duration
	FrontendOrigin string

	DatabaseURL   string
	RedisURL      string
	RedisPassword string
	LockTTL       time.Duration

	TelegramToken  string
	TelegramChatID int64
}

// fileConfig is the optional YAML selection file.
type fileConfig struct {
	Mode      string   `yaml:"mode"`
	Threshold *float64 `yaml:"threshold"`
	AllowList []string `yaml:"allow_list"`
	Single    struct {
		Chain  string `yaml:"chain"`
		PoolID string `yaml:"pool_id"`
	} `yaml:"single"`
	Predicate struct {
		Project string   `yaml:"project"`
		Assets  []string `yaml:"assets"`
	} `yaml:"predicate"`
	DataDir string `yaml:"data_dir"`
}

// Load builds the run configuration from defaults, the optional YAML file at
// path (or POOLS_CONFIG), and the environment, in that order. A non-empty mode
// overrides both.
func Load(path, mode string) (Config, error) {
	if path == "" {
		path = os.Getenv("POOLS_CONFIG")
	}
	cfg := Config{
		Mode:           ModeAllowList,
		AllowList:      append([]string(nil), DefaultAllowList...),
		TargetPoolID:   "aave-v3-ethereum-cbbtc",
		TargetChain:    "Ethereum",
		ProjectFilter:  "aave",
		Assets:         append([]string(nil), DefaultAssets...),
		DataDir:        "data",
		APIURL:         envOr("DEFILLAMA_API_URL", "https://yields.llama.fi/pools"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogFile:        os.Getenv("LOG_FILE"),
		Port:           envOr("PORT", "8080"),
		FrontendOrigin: envOr("FRONTEND_ORIGIN", "*"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	var threshold *float64
	if path != "" {
		fc, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		threshold = fc.Threshold
		applyFile(&cfg, fc)
	}

	if v := os.Getenv("SELECTION_MODE"); v != "" {
		cfg.Mode = Mode(strings.ToLower(v))
	}
	if mode != "" {
		cfg.Mode = Mode(strings.ToLower(mode))
	}
	cfg.TargetPoolID = envOr("TARGET_POOL_ID", cfg.TargetPoolID)
	cfg.TargetChain = envOr("TARGET_CHAIN", cfg.TargetChain)
	cfg.DataDir = envOr("DATA_DIR", cfg.DataDir)

	var err error
	if v := os.Getenv("APY_THRESHOLD"); v != "" {
		t, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return Config{}, fmt.Errorf("parse APY_THRESHOLD: %w", perr)
		}
		threshold = &t
	}
	if cfg.FetchTimeout, err = envDuration("FETCH_TIMEOUT", DefaultFetchTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = envDuration("POLL_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.LockTTL, err = envDuration("LOCK_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.StrictExit, err = envBool("STRICT_EXIT", false); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return Config{}, fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
	}

	// If Infisical credentials are available, fetch secrets from Infisical
	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		loadFromInfisical(&cfg, clientID, clientSecret)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	if threshold != nil {
		cfg.Threshold = *threshold
	} else {
		cfg.Threshold = DefaultThreshold(cfg.Mode)
	}
	return cfg, nil
}

// DefaultThreshold is the APY bound used when none is configured.
func DefaultThreshold(m Mode) float64 {
	if m == ModeAllowList {
		return 5.0
	}
	return 4.0
}

// Slug names the log and snapshot files for the configured selection.
func (c Config) Slug() string {
	switch c.Mode {
	case ModeSingle:
		return "single-" + sanitize(c.TargetPoolID)
	case ModePredicate:
		return "aave-assets"
	default:
		return "aave-all"
	}
}

// LogPath is the CSV history file.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "apy_log_"+c.Slug()+".csv")
}

// SnapshotPath is the JSON latest-state file.
func (c Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "exports", "apy_snapshot_"+c.Slug()+".json")
}

// TelegramEnabled reports whether alerts should also go to Telegram.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeAllowList:
		if len(c.AllowList) == 0 {
			return fmt.Errorf("allowlist mode requires at least one pool id")
		}
	case ModeSingle:
		if c.TargetPoolID == "" || c.TargetChain == "" {
			return fmt.Errorf("single mode requires TARGET_POOL_ID and TARGET_CHAIN")
		}
	case ModePredicate:
		if c.ProjectFilter == "" {
			return fmt.Errorf("predicate mode requires a project filter")
		}
	default:
		return fmt.Errorf("unknown selection mode %q", c.Mode)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	return nil
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config: %w", err)
	}
	return fc, nil
}

func applyFile(cfg *Config, fc fileConfig) {
	if fc.Mode != "" {
		cfg.Mode = Mode(strings.ToLower(fc.Mode))
	}
	if ids := cleanStrings(fc.AllowList); len(ids) > 0 {
		cfg.AllowList = ids
	}
	if fc.Single.Chain != "" {
		cfg.TargetChain = fc.Single.Chain
	}
	if fc.Single.PoolID != "" {
		cfg.TargetPoolID = fc.Single.PoolID
	}
	if fc.Predicate.Project != "" {
		cfg.ProjectFilter = fc.Predicate.Project
	}
	if fc.Predicate.Assets != nil {
		cfg.Assets = cleanStrings(fc.Predicate.Assets)
	}
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
}

func loadFromInfisical(cfg *Config, clientID, clientSecret string) {
	siteURL := envOr("INFISICAL_SITE_URL", "https://app.infisical.com")
	projectID := os.Getenv("INFISICAL_PROJECT_ID")
	envSlug := envOr("INFISICAL_ENV", "prod")

	if projectID == "" {
		slog.Warn("INFISICAL_PROJECT_ID not set, skipping Infisical")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := infisical.NewInfisicalClient(ctx, infisical.Config{
		SiteUrl:          siteURL,
		AutoTokenRefresh: false,
	})

	_, err := client.Auth().UniversalAuthLogin(clientID, clientSecret)
	if err != nil {
		slog.Error("infisical auth failed", "error", err)
		return
	}

	secrets := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &cfg.TelegramToken,
		"REDIS_PASSWORD":     &cfg.RedisPassword,
		"DATABASE_URL":       &cfg.DatabaseURL,
	}

	for key, target := range secrets {
		if *target != "" {
			continue // env var already set, skip
		}
		secret, err := client.Secrets().Retrieve(infisical.RetrieveSecretOptions{
			SecretKey:   key,
			Environment: envSlug,
			ProjectID:   projectID,
			SecretPath:  "/",
		})
		if err != nil {
			slog.Warn("failed to retrieve secret from infisical", "key", key, "error", err)
			continue
		}
		*target = secret.SecretValue
		slog.Info("loaded secret from infisical", "key", key)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
