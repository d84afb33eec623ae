package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultRateBurst       = 20
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	BackendMemory = "memory"
	BackendBadger = "badger"

	DefaultRevocationBackend = BackendMemory
	DefaultRevocationDir     = "/var/lib/fwt-server/revocations"
	DefaultPurgeInterval     = time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
//
// No authority is configured by default. Authorities is a list, and merging
// configured entries over default entries would mix their fields.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				RateBurst:       DefaultRateBurst,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
		},
		Revocation: RevocationSection{
			Backend:       DefaultRevocationBackend,
			Dir:           DefaultRevocationDir,
			PurgeInterval: DefaultPurgeInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
