package config

import "time"

// Config holds corpus configuration.
// Loaded from {home}/config.yaml with CORPUS_ environment overrides.
type Config struct {
	Server     ServerCfg     `mapstructure:"server" yaml:"server"`
	Database   DatabaseCfg   `mapstructure:"database" yaml:"database"`
	Dispatcher DispatcherCfg `mapstructure:"dispatcher" yaml:"dispatcher"`
	Pipeline   PipelineCfg   `mapstructure:"pipeline" yaml:"pipeline"`
	Services   ServicesCfg   `mapstructure:"services" yaml:"services"`
	Inbox      InboxCfg      `mapstructure:"inbox" yaml:"inbox"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// DatabaseCfg selects and configures the persistence backend.
type DatabaseCfg struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "sqlite" or "postgres"
	// DSN is the connection string. Empty with driver sqlite means
	// {home}/corpus.db.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// DispatcherCfg configures the job dispatcher loop.
type DispatcherCfg struct {
	Interval      time.Duration `mapstructure:"interval" yaml:"interval"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	// LoadThreshold is the CPU/memory percentage above which a tick is skipped.
	LoadThreshold float64 `mapstructure:"load_threshold" yaml:"load_threshold"`
}

// PipelineCfg configures the content pipeline.
type PipelineCfg struct {
	// TargetLocale is the fixed second translation target (besides English).
	TargetLocale string `mapstructure:"target_locale" yaml:"target_locale"`
	// BatchConcurrency bounds parallel entity upserts during extraction.
	BatchConcurrency int `mapstructure:"batch_concurrency" yaml:"batch_concurrency"`
}

// ServicesCfg configures external compute collaborators.
type ServicesCfg struct {
	// ComputeURL is the base URL of the language/translation/NER worker pool.
	ComputeURL string `mapstructure:"compute_url" yaml:"compute_url"`
	RAG        RAGCfg `mapstructure:"rag" yaml:"rag"`
}

// RAGCfg configures the retrieval-augmented generation service.
type RAGCfg struct {
	Type   string `mapstructure:"type" yaml:"type"` // "http" or "openai"
	URL    string `mapstructure:"url" yaml:"url"`
	Model  string `mapstructure:"model" yaml:"model"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
}

// InboxCfg configures the watched upload inbox.
type InboxCfg struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Database: DatabaseCfg{
			Driver: "sqlite",
		},
		Dispatcher: DispatcherCfg{
			Interval:      5 * time.Second,
			SweepInterval: time.Hour,
			LoadThreshold: 80,
		},
		Pipeline: PipelineCfg{
			TargetLocale:     "es",
			BatchConcurrency: 5,
		},
		Services: ServicesCfg{
			ComputeURL: "http://localhost:8000",
			RAG: RAGCfg{
				Type:   "http",
				URL:    "http://localhost:8001",
				Model:  "gpt-4o-mini",
				APIKey: "${OPENAI_API_KEY}",
			},
		},
		Inbox: InboxCfg{
			Enabled: true,
		},
	}
}
