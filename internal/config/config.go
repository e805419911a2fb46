package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	City         CityConfig         `koanf:"city"`
	Sources      []SourceConfig     `koanf:"sources"`
	Search       SearchConfig       `koanf:"search"`
	Cache        CacheConfig        `koanf:"cache"`
	Ranking      RankingConfig      `koanf:"ranking"`
	Session      SessionConfig      `koanf:"session"`
	Conversation ConversationConfig `koanf:"conversation"`
	Models       ModelsConfig       `koanf:"models"`
	NLU          NLUConfig          `koanf:"nlu"`
	Adapters     AdaptersConfig     `koanf:"adapters"`
	Ingress      IngressConfig      `koanf:"ingress"`
	Worker       WorkerConfig       `koanf:"worker"`
	Scheduler    SchedulerConfig    `koanf:"scheduler"`
	Daemon       DaemonConfig       `koanf:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type CityConfig struct {
	Name      string `koanf:"name"`
	Timezone  string `koanf:"timezone"`
	AreasFile string `koanf:"areas_file"`
}

// SourceConfig describes one listing feed. Fields maps canonical record
// fields to one or more candidate keys in the feed's JSON objects.
type SourceConfig struct {
	Name    string              `koanf:"name"`
	Type    string              `koanf:"type"`
	URL     string              `koanf:"url"`
	Path    string              `koanf:"path"`
	Items   string              `koanf:"items"`
	Weight  float64             `koanf:"weight"`
	Enabled *bool               `koanf:"enabled"`
	Fields  map[string][]string `koanf:"fields"`
	Headers map[string]string   `koanf:"headers"`
}

// IsEnabled treats an unset flag as enabled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type SearchConfig struct {
	Enabled    bool    `koanf:"enabled"`
	BaseURL    string  `koanf:"base_url"`
	Timeout    string  `koanf:"timeout"`
	MaxResults int     `koanf:"max_results"`
	Weight     float64 `koanf:"weight"`
}

type CacheConfig struct {
	TTL           string `koanf:"ttl"`
	SourceTimeout string `koanf:"source_timeout"`
	MinUpcoming   int    `koanf:"min_upcoming"`
	MaxResults    int    `koanf:"max_results"`
	EmptyWarnRun  int    `koanf:"empty_warn_run"`
	SnapshotPath  string `koanf:"snapshot_path"`
}

type RankingConfig struct {
	CutoffKm     float64 `koanf:"cutoff_km"`
	RecentGrace  string  `koanf:"recent_grace"`
	MatchCap     int     `koanf:"match_cap"`
	PoolSize     int     `koanf:"pool_size"`
	ResolveKm    float64 `koanf:"resolve_km"`
	CrossPenalty float64 `koanf:"cross_borough_penalty"`
}

type SessionConfig struct {
	Backend      string      `koanf:"backend"`
	TTL          string      `koanf:"ttl"`
	HistoryLimit int         `koanf:"history_limit"`
	Redis        RedisConfig `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type ConversationConfig struct {
	AdjacentHops  int    `koanf:"adjacent_hops"`
	PicksPerTurn  int    `koanf:"picks_per_turn"`
	EvergreenFile string `koanf:"evergreen_file"`
}

type ModelsConfig struct {
	Default             string          `koanf:"default"`
	Fallback            string          `koanf:"fallback"`
	MaxFallbackAttempts int             `koanf:"max_fallback_attempts"`
	Registry            []ModelRegistry `koanf:"registry"`
}

type ModelRegistry struct {
	Name           string `koanf:"name"`
	Provider       string `koanf:"provider"`
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	RequestTimeout string `koanf:"request_timeout"`
}

// NLUConfig selects how turns are classified and rendered. With Enabled=false
// the deterministic rules and template renderer handle everything.
type NLUConfig struct {
	Enabled         bool   `koanf:"enabled"`
	ClassifierModel string `koanf:"classifier_model"`
	RendererModel   string `koanf:"renderer_model"`
	Timeout         string `koanf:"timeout"`
}

type AdaptersConfig struct {
	Slack    SlackConfig    `koanf:"slack"`
	Telegram TelegramConfig `koanf:"telegram"`
}

type SlackConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Port          int    `koanf:"port"`
	SigningSecret string `koanf:"signing_secret"`
	BotToken      string `koanf:"bot_token"`
}

type TelegramConfig struct {
	Enabled       bool   `koanf:"enabled"`
	BotToken      string `koanf:"bot_token"`
	UpdateTimeout int    `koanf:"update_timeout"`
}

type IngressConfig struct {
	QueueSize        int    `koanf:"queue_size"`
	SubmitTimeout    string `koanf:"submit_timeout"`
	DrainTimeout     string `koanf:"drain_timeout"`
	IdempotencyTTL   string `koanf:"idempotency_ttl"`
	RateLimitPerHour int    `koanf:"rate_limit_per_hour"`
}

type WorkerConfig struct {
	Count           int    `koanf:"count"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type SchedulerConfig struct {
	SessionSweep      string `koanf:"session_sweep"`
	HousekeepingSweep string `koanf:"housekeeping_sweep"`
	ShutdownTimeout   string `koanf:"shutdown_timeout"`
}

type DaemonConfig struct {
	ShutdownTimeout        string `koanf:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout"`
	DataDir                string `koanf:"data_dir"`
}

const (
	DefaultServerPort                 = 8080
	DefaultServerLogLevel             = "info"
	DefaultServerReadTimeout          = "10s"
	DefaultServerWriteTimeout         = "10s"
	DefaultServerIdleTimeout          = "60s"
	DefaultServerShutdownTimeout      = "5s"
	DefaultCityName                   = "New York"
	DefaultCityTimezone               = "America/New_York"
	DefaultSearchEnabled              = true
	DefaultSearchBaseURL              = "https://www.bing.com/search"
	DefaultSearchTimeout              = "10s"
	DefaultSearchMaxResults           = 8
	DefaultSearchWeight               = 0.3
	DefaultCacheTTL                   = "2h"
	DefaultCacheSourceTimeout         = "10s"
	DefaultCacheMinUpcoming           = 5
	DefaultCacheMaxResults            = 20
	DefaultCacheEmptyWarnRun          = 3
	DefaultRankingCutoffKm            = 3.0
	DefaultRankingRecentGrace         = "2h"
	DefaultRankingMatchCap            = 10
	DefaultRankingPoolSize            = 15
	DefaultRankingResolveKm           = 3.0
	DefaultRankingCrossBoroughPenalty = 3.0
	DefaultSessionBackend             = "memory"
	DefaultSessionTTL                 = "2h"
	DefaultSessionHistoryLimit        = 6
	DefaultSessionRedisAddr           = "localhost:6379"
	DefaultSessionRedisPrefix         = "nightowl:session:"
	DefaultConversationAdjacentHops   = 3
	DefaultConversationPicksPerTurn   = 3
	DefaultModelDefault               = "gpt-4o-mini"
	DefaultModelFallback              = "claude-3-5-haiku-latest"
	DefaultModelMaxFallbackAttempts   = 2
	DefaultModelRequestTimeout        = "20s"
	DefaultOpenAIBaseURL              = "https://api.openai.com/v1"
	DefaultOllamaBaseURL              = "http://localhost:11434/v1"
	DefaultOllamaAPIKey               = "ollama"
	DefaultNLUEnabled                 = false
	DefaultNLUTimeout                 = "8s"
	DefaultSlackPort                  = 3000
	DefaultTelegramUpdateTimeout      = 60
	DefaultIngressQueueSize           = 100
	DefaultIngressSubmitTimeout       = "500ms"
	DefaultIngressDrainTimeout        = "5s"
	DefaultIngressIdempotencyTTL      = "24h"
	DefaultIngressRateLimitPerHour    = 120
	DefaultWorkerCount                = 4
	DefaultWorkerShutdownTimeout      = "30s"
	DefaultSchedulerSessionSweep      = "@every 1m"
	DefaultSchedulerHousekeepingSweep = "@every 1h"
	DefaultSchedulerShutdownTimeout   = "30s"
	DefaultDaemonShutdownTimeout      = "30s"
	DefaultDaemonHealthCheckInterval  = "30s"
	DefaultDaemonStartupShutdownTime  = "10s"
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	dataDir := filepath.Join(os.Getenv("HOME"), ".nightowl")

	defaults := map[string]interface{}{
		"server.port":                         DefaultServerPort,
		"server.log_level":                    DefaultServerLogLevel,
		"server.read_timeout":                 DefaultServerReadTimeout,
		"server.write_timeout":                DefaultServerWriteTimeout,
		"server.idle_timeout":                 DefaultServerIdleTimeout,
		"server.shutdown_timeout":             DefaultServerShutdownTimeout,
		"city.name":                           DefaultCityName,
		"city.timezone":                       DefaultCityTimezone,
		"search.enabled":                      DefaultSearchEnabled,
		"search.base_url":                     DefaultSearchBaseURL,
		"search.timeout":                      DefaultSearchTimeout,
		"search.max_results":                  DefaultSearchMaxResults,
		"search.weight":                       DefaultSearchWeight,
		"cache.ttl":                           DefaultCacheTTL,
		"cache.source_timeout":                DefaultCacheSourceTimeout,
		"cache.min_upcoming":                  DefaultCacheMinUpcoming,
		"cache.max_results":                   DefaultCacheMaxResults,
		"cache.empty_warn_run":                DefaultCacheEmptyWarnRun,
		"cache.snapshot_path":                 filepath.Join(dataDir, "cache", "events.json"),
		"ranking.cutoff_km":                   DefaultRankingCutoffKm,
		"ranking.recent_grace":                DefaultRankingRecentGrace,
		"ranking.match_cap":                   DefaultRankingMatchCap,
		"ranking.pool_size":                   DefaultRankingPoolSize,
		"ranking.resolve_km":                  DefaultRankingResolveKm,
		"ranking.cross_borough_penalty":       DefaultRankingCrossBoroughPenalty,
		"session.backend":                     DefaultSessionBackend,
		"session.ttl":                         DefaultSessionTTL,
		"session.history_limit":               DefaultSessionHistoryLimit,
		"session.redis.addr":                  DefaultSessionRedisAddr,
		"session.redis.prefix":                DefaultSessionRedisPrefix,
		"conversation.adjacent_hops":          DefaultConversationAdjacentHops,
		"conversation.picks_per_turn":         DefaultConversationPicksPerTurn,
		"models.default":                      DefaultModelDefault,
		"models.fallback":                     DefaultModelFallback,
		"models.max_fallback_attempts":        DefaultModelMaxFallbackAttempts,
		"models.registry": []ModelRegistry{
			{Name: DefaultModelDefault, Provider: "openai"},
			{Name: DefaultModelFallback, Provider: "anthropic"},
		},
		"nlu.enabled":                      DefaultNLUEnabled,
		"nlu.timeout":                      DefaultNLUTimeout,
		"adapters.slack.port":              DefaultSlackPort,
		"adapters.telegram.update_timeout": DefaultTelegramUpdateTimeout,
		"ingress.queue_size":               DefaultIngressQueueSize,
		"ingress.submit_timeout":           DefaultIngressSubmitTimeout,
		"ingress.drain_timeout":            DefaultIngressDrainTimeout,
		"ingress.idempotency_ttl":          DefaultIngressIdempotencyTTL,
		"ingress.rate_limit_per_hour":      DefaultIngressRateLimitPerHour,
		"worker.count":                     DefaultWorkerCount,
		"worker.shutdown_timeout":          DefaultWorkerShutdownTimeout,
		"scheduler.session_sweep":          DefaultSchedulerSessionSweep,
		"scheduler.housekeeping_sweep":     DefaultSchedulerHousekeepingSweep,
		"scheduler.shutdown_timeout":       DefaultSchedulerShutdownTimeout,
		"daemon.shutdown_timeout":          DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":     DefaultDaemonHealthCheckInterval,
		"daemon.startup_shutdown_timeout":  DefaultDaemonStartupShutdownTime,
		"daemon.data_dir":                  dataDir,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".nightowl", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	k.Load(env.Provider("NIGHTOWL_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "NIGHTOWL_")), "_", ".", -1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "openai"
		}
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	injectProviderKeys(&cfg)

	return &cfg, nil
}

var providerKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

func injectProviderKeys(cfg *Config) {
	for i, m := range cfg.Models.Registry {
		if m.APIKey != "" {
			continue
		}
		envName, ok := providerKeyEnv[m.Provider]
		if !ok {
			continue
		}
		if key := os.Getenv(envName); key != "" {
			cfg.Models.Registry[i].APIKey = key
		}
	}
	if cfg.Adapters.Telegram.BotToken == "" {
		cfg.Adapters.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if cfg.Adapters.Slack.BotToken == "" {
		cfg.Adapters.Slack.BotToken = os.Getenv("SLACK_BOT_TOKEN")
	}
	if cfg.Adapters.Slack.SigningSecret == "" {
		cfg.Adapters.Slack.SigningSecret = os.Getenv("SLACK_SIGNING_SECRET")
	}
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	targets := []*string{
		&cfg.City.AreasFile,
		&cfg.Cache.SnapshotPath,
		&cfg.Conversation.EvergreenFile,
		&cfg.Daemon.DataDir,
	}
	for i := range cfg.Sources {
		targets = append(targets, &cfg.Sources[i].Path)
	}

	for _, target := range targets {
		expanded, err := ExpandPath(*target)
		if err != nil {
			return err
		}
		if expanded != "" {
			*target = expanded
		}
	}
	return nil
}
