package config

import (
	"fmt"
	"time"
)

// ClientApp holds client-side application settings derived from the shared
// structured config.
type ClientApp struct {
	// Device is the label identifying this device in conflict attribution.
	Device string
	// Version is the semantic version of the running agent.
	Version string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// BaseURL is the sync server endpoint.
	BaseURL string
	// RequestTimeout is the bound on each remote apply attempt.
	RequestTimeout time.Duration
}

// ClientQueue contains local queue database settings for the client.
type ClientQueue struct {
	// Path is the SQLite database file the mutation queue persists to.
	Path string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// Queue holds the durable mutation queue settings.
	Queue ClientQueue
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often the sync job triggers a drain.
	SyncInterval time.Duration
	// ProbeInterval defines how often connectivity is probed.
	ProbeInterval time.Duration
}

// ClientSync contains sync engine policy settings.
type ClientSync struct {
	// MaxAttempts is the per-mutation retry ceiling.
	MaxAttempts int
	// BackoffBase is the first retry delay.
	BackoffBase time.Duration
	// BackoffCap bounds the retry delay.
	BackoffCap time.Duration
	// BatchSize caps mutations pulled per drain iteration.
	BatchSize int
	// OfflineDebounce is the connectivity flap suppression window.
	OfflineDebounce time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains application-level client settings.
	App ClientApp
	// Adapter contains client transport address and timeout.
	Adapter ClientAdapter
	// Storage contains client storage settings.
	Storage ClientStorage
	// Workers contains background job settings.
	Workers ClientWorkers
	// Sync contains retry/backoff/batching policy.
	Sync ClientSync
}

// Defaults applied by GetClientConfig when the merged configuration leaves
// sync policy fields unset.
const (
	defaultMaxAttempts     = 5
	defaultBackoffBase     = time.Second
	defaultBackoffCap      = 30 * time.Second
	defaultBatchSize       = 50
	defaultOfflineDebounce = time.Second
	defaultRequestTimeout  = 15 * time.Second
	defaultSyncInterval    = time.Minute
	defaultProbeInterval   = 15 * time.Second
)

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, fills unset sync policy fields with
// defaults, and validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		App: ClientApp{
			Device:  cfg.App.Device,
			Version: cfg.App.Version,
		},
		Adapter: ClientAdapter{
			BaseURL:        cfg.Adapter.BaseURL,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			Queue: ClientQueue{
				Path: cfg.Storage.Queue.Path,
			},
		},
		Workers: ClientWorkers{
			SyncInterval:  cfg.Workers.SyncInterval,
			ProbeInterval: cfg.Workers.ProbeInterval,
		},
		Sync: ClientSync{
			MaxAttempts:     cfg.Sync.MaxAttempts,
			BackoffBase:     cfg.Sync.BackoffBase,
			BackoffCap:      cfg.Sync.BackoffCap,
			BatchSize:       cfg.Sync.BatchSize,
			OfflineDebounce: cfg.Sync.OfflineDebounce,
		},
	}
	clientCfg.applyDefaults()

	return clientCfg, clientCfg.validate()
}

func (cfg *ClientConfig) applyDefaults() {
	if cfg.Adapter.RequestTimeout <= 0 {
		cfg.Adapter.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Workers.SyncInterval <= 0 {
		cfg.Workers.SyncInterval = defaultSyncInterval
	}
	if cfg.Workers.ProbeInterval <= 0 {
		cfg.Workers.ProbeInterval = defaultProbeInterval
	}
	if cfg.Sync.MaxAttempts <= 0 {
		cfg.Sync.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Sync.BackoffBase <= 0 {
		cfg.Sync.BackoffBase = defaultBackoffBase
	}
	if cfg.Sync.BackoffCap <= 0 {
		cfg.Sync.BackoffCap = defaultBackoffCap
	}
	if cfg.Sync.BatchSize <= 0 {
		cfg.Sync.BatchSize = defaultBatchSize
	}
	if cfg.Sync.OfflineDebounce <= 0 {
		cfg.Sync.OfflineDebounce = defaultOfflineDebounce
	}
}
