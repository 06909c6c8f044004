package config

// Default configuration values.
const (
	DefaultStateDir = "~/.local/share/courier"
	DefaultLogDir   = "~/.local/share/courier/logs"

	DefaultStoreDriver = "sqlite"
	DefaultQueueKey    = "queue.items"

	DefaultMaxAttempts = 3

	DefaultProbeURL      = "http://connectivitycheck.gstatic.com/generate_204"
	DefaultProbeInterval = 15
	DefaultProbeTimeout  = 5

	DefaultRemoteTimeout = 30

	DefaultNtfyRequestTimeout = 10

	DefaultPollInterval       = 5
	DefaultErrorRetryInterval = 30

	DefaultLogFormat = "console"
	DefaultLogLevel  = "info"
)

// Default returns a Config populated with default values. Paths are kept in
// their tilde form until normalize expands them.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: DefaultStateDir,
			LogDir:   DefaultLogDir,
		},
		Store: Store{
			Driver:   DefaultStoreDriver,
			QueueKey: DefaultQueueKey,
		},
		Queue: Queue{
			MaxAttempts: DefaultMaxAttempts,
		},
		Connectivity: Connectivity{
			ProbeURL:      DefaultProbeURL,
			ProbeInterval: DefaultProbeInterval,
			ProbeTimeout:  DefaultProbeTimeout,
			WatchLinks:    true,
		},
		Remote: Remote{
			Timeout: DefaultRemoteTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: DefaultNtfyRequestTimeout,
			Sweeps:         true,
			Failures:       true,
		},
		Agent: Agent{
			PollInterval:       DefaultPollInterval,
			ErrorRetryInterval: DefaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: DefaultLogFormat,
			Level:  DefaultLogLevel,
		},
	}
}
