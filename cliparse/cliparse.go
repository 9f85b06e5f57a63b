package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/do4btc/models"
)

type Config struct {
	Port           int
	Store          string
	DatabaseURL    string
	SupabaseURL    string
	SupabaseKey    string
	OpenNodeAPIKey string
	OpenNodeURL    string
	PublicBaseURL  string
	VoteSats       int64
	CreditKey      string
	TuningFile     string
	ResyncSchedule string
	LogLevel       string
	AllowedOrigins []string
	Dev            bool
	EnvFile        string
}

// ParseFlags reads flags, then the environment (including an optional .env
// file), then defaults. Flags win over the environment, and variables already
// set in the environment win over the .env file.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var origins string

	flags := flag.NewFlagSet("do4btc", flag.ContinueOnError)

	flags.IntVar(&cfg.Port, "p", 0, "Server port")
	flags.StringVar(&cfg.Store, "store", "", "Idea store (supabase, postgres or sqlite)")
	flags.StringVar(&cfg.DatabaseURL, "d", "", "Database URL for postgres or sqlite")
	flags.StringVar(&cfg.SupabaseURL, "supabase-url", "", "Supabase project URL")
	flags.StringVar(&cfg.OpenNodeURL, "opennode-url", "", "OpenNode API base URL")
	flags.StringVar(&cfg.PublicBaseURL, "base-url", "", "Public base URL for payment callbacks")
	flags.Int64Var(&cfg.VoteSats, "vote-sats", 0, "Satoshis charged per vote")
	flags.StringVar(&cfg.TuningFile, "tuning", "", "Motion tuning YAML file")
	flags.StringVar(&cfg.ResyncSchedule, "resync", "", "Cron schedule for full resyncs")
	flags.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&origins, "origins", "", "Comma separated CORS origins")
	flags.BoolVar(&cfg.Dev, "dev", false, "Development mode (console logs, relaxed requirements)")
	flags.StringVar(&cfg.EnvFile, "env", ".env", "Optional env file")

	// Secrets (prefer env variables, but allow CLI for dev)
	flags.StringVar(&cfg.SupabaseKey, "supabase-key", "", "Supabase API key (prefer env)")
	flags.StringVar(&cfg.OpenNodeAPIKey, "opennode-key", "", "OpenNode API key (prefer env)")
	flags.StringVar(&cfg.CreditKey, "credit-key", "", "Shared key for vote credit hooks (prefer env)")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.EnvFile != "" {
		if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", cfg.EnvFile, err)
		}
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.VoteSats == 0 {
		if sats := os.Getenv("VOTE_SATS"); sats != "" {
			v, err := strconv.ParseInt(sats, 10, 64)
			if err != nil || v <= 0 {
				return Config{}, errors.New("invalid VOTE_SATS env variable")
			}
			cfg.VoteSats = v
		} else {
			cfg.VoteSats = 1000
		}
	}
	if cfg.VoteSats < 0 {
		return Config{}, errors.New("vote sats must be positive")
	}

	envDefault(&cfg.DatabaseURL, "DATABASE_URL", "")
	envDefault(&cfg.SupabaseURL, "SUPABASE_URL", "")
	envDefault(&cfg.SupabaseKey, "SUPABASE_KEY", "")
	envDefault(&cfg.OpenNodeAPIKey, "OPENNODE_API_KEY", "")
	envDefault(&cfg.OpenNodeURL, "OPENNODE_URL", "https://api.opennode.com")
	envDefault(&cfg.PublicBaseURL, "PUBLIC_BASE_URL", "")
	envDefault(&cfg.CreditKey, "CREDIT_KEY", "")
	envDefault(&cfg.TuningFile, "TUNING_FILE", "")
	envDefault(&cfg.ResyncSchedule, "RESYNC_SCHEDULE", "@every 5m")
	envDefault(&cfg.LogLevel, "LOG_LEVEL", "info")
	envDefault(&origins, "ALLOWED_ORIGINS", "*")
	cfg.AllowedOrigins = splitList(origins)

	if cfg.Store == "" {
		cfg.Store = os.Getenv("STORE")
	}
	if cfg.Store == "" {
		if cfg.SupabaseURL != "" {
			cfg.Store = models.StoreSupabase
		} else {
			cfg.Store = models.StoreSQLite
		}
	}

	switch cfg.Store {
	case models.StoreSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return Config{}, errors.New("SUPABASE_URL and SUPABASE_KEY required for the supabase store")
		}
	case models.StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
		}
	case models.StoreSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "file:do4btc.db"
		}
	default:
		return Config{}, fmt.Errorf("unknown store %q (supabase, postgres or sqlite)", cfg.Store)
	}

	// Secrets - MUST be provided outside dev mode
	if cfg.OpenNodeAPIKey == "" && !cfg.Dev {
		return Config{}, errors.New("OPENNODE_API_KEY required")
	}

	return cfg, nil
}

func envDefault(dst *string, key, def string) {
	if *dst != "" {
		return
	}
	if v := os.Getenv(key); v != "" {
		*dst = v
		return
	}
	*dst = def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
