package command

import (
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fwt-go/internal/cli/config"
	"github.com/yndnr/fwt-go/internal/cli/connection"
	"github.com/yndnr/fwt-go/internal/cli/output"
	"github.com/yndnr/fwt-go/internal/infra/buildinfo"
	"github.com/yndnr/fwt-go/internal/infra/tlsroots"
)

const settingsKey = "settings"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:     "fwt",
		Usage:    "Issue, validate and inspect encrypted tokens",
		Version:  buildinfo.String(),
		Flags:    globalFlags(),
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			KeygenCommand(),
			IssueCommand(),
			ValidateCommand(),
			InspectCommand(),
			RemoteCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			s, err := resolveSettings(c)
			if err != nil {
				return err
			}
			c.App.Metadata[settingsKey] = s
			return nil
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "CLI profile path",
			Value: config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "fwt-server address (e.g., https://localhost:5080)",
		},
		&cli.StringFlag{
			Name:  "api-key",
			Usage: "API key secret for the server",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM bundle trusted for https servers",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
	}
}

// Settings are the effective global settings: flags override the profile.
type Settings struct {
	ConfigPath string
	Profile    *config.CLIConfig

	Server  string
	APIKey  string
	CAFile  string
	KeyFile string
	Output  output.Format
	Wide    bool
}

func resolveSettings(c *cli.Context) (*Settings, error) {
	path := c.String("config")
	profile, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	s := &Settings{
		ConfigPath: path,
		Profile:    profile,
		Server:     profile.Server,
		APIKey:     profile.APIKey,
		CAFile:     profile.CAFile,
		KeyFile:    profile.KeyFile,
		Wide:       c.Bool("wide"),
	}
	if c.IsSet("server") {
		s.Server = c.String("server")
	}
	if c.IsSet("api-key") {
		s.APIKey = c.String("api-key")
	}
	if c.IsSet("ca-file") {
		s.CAFile = c.String("ca-file")
	}

	format := profile.Output
	if c.IsSet("output") {
		format = c.String("output")
	}
	if s.Output, err = output.ParseFormat(format); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSettings retrieves the settings resolved in Before.
func GetSettings(c *cli.Context) *Settings {
	if s, ok := c.App.Metadata[settingsKey].(*Settings); ok {
		return s
	}
	s, err := resolveSettings(c)
	if err != nil {
		return &Settings{Profile: config.Default(), Output: output.FormatTable}
	}
	return s
}

// Render writes data to the app writer in the selected format.
func Render(c *cli.Context, data any) error {
	s := GetSettings(c)
	return output.NewFormatter(s.Output, s.Wide).Format(c.App.Writer, data)
}

// RemoteClient builds an HTTP client for the configured server.
func RemoteClient(c *cli.Context) (*connection.HTTPClient, error) {
	s := GetSettings(c)
	if s.Server == "" {
		return nil, fmt.Errorf("no server configured (use --server or 'fwt config set server URL')")
	}

	var opts []connection.Option
	if s.CAFile != "" {
		pool, err := tlsroots.LoadPool(s.CAFile)
		if err != nil {
			return nil, fmt.Errorf("load ca file: %w", err)
		}
		opts = append(opts, connection.WithTLSConfig(&tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		}))
	}
	return connection.NewHTTPClient(s.Server, s.APIKey, opts...), nil
}

// readArg returns the first argument, or reads it from stdin when the
// argument is "-" or missing.
func readArg(c *cli.Context, name string) (string, error) {
	if arg := c.Args().First(); arg != "" && arg != "-" {
		return arg, nil
	}
	return readStdin(c, name)
}

func readStdin(c *cli.Context, name string) (string, error) {
	if isTerminal(c.App.Reader) {
		return "", fmt.Errorf("%s is required", name)
	}

	data, err := io.ReadAll(io.LimitReader(c.App.Reader, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return value, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
