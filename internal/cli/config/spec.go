package config

// CLIConfig is the configuration for the fwt CLI.
type CLIConfig struct {
	// Server is the fwt-server base URL for remote commands.
	Server string `koanf:"server" yaml:"server"`

	// APIKey is sent as a bearer token. Stored in plain text, so the
	// file is written with mode 0600.
	APIKey string `koanf:"api_key" yaml:"api_key,omitempty"`

	// CAFile verifies an https server with a private CA.
	CAFile string `koanf:"ca_file" yaml:"ca_file,omitempty"`

	// Output is the default output format: table, json or yaml.
	Output string `koanf:"output" yaml:"output"`

	// KeyFile holds the key used by local issue, validate and inspect.
	KeyFile string `koanf:"key_file" yaml:"key_file,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "http://localhost:5080",
		Output: "table",
	}
}
