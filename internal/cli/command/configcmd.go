package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fwt-go/internal/cli/config"
	"github.com/yndnr/fwt-go/internal/cli/output"
	serverconfig "github.com/yndnr/fwt-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the CLI profile",
				Action: configShow,
			},
			{
				Name:      "set",
				Usage:     "Set a CLI profile value (server, api_key, ca_file, output, key_file)",
				ArgsUsage: "KEY VALUE",
				Action:    configSet,
			},
			{
				Name:   "path",
				Usage:  "Print the CLI profile path",
				Action: configPath,
			},
			{
				Name:      "check",
				Usage:     "Validate an fwt-server config file",
				ArgsUsage: "FILE",
				Action:    configCheck,
			},
		},
	}
}

// ProfileView is the CLI profile with secrets masked.
type ProfileView struct {
	Path    string `json:"path"`
	Server  string `json:"server"`
	APIKey  string `json:"api_key,omitempty"`
	CAFile  string `json:"ca_file,omitempty"`
	Output  string `json:"output"`
	KeyFile string `json:"key_file,omitempty"`
}

func configShow(c *cli.Context) error {
	s := GetSettings(c)
	p := s.Profile
	view := ProfileView{
		Path:    s.ConfigPath,
		Server:  p.Server,
		CAFile:  p.CAFile,
		Output:  p.Output,
		KeyFile: p.KeyFile,
	}
	if p.APIKey != "" {
		view.APIKey = maskValue(p.APIKey)
	}
	return Render(c, view)
}

func configSet(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: fwt config set KEY VALUE")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	s := GetSettings(c)
	cfg, err := config.Load(s.ConfigPath)
	if err != nil {
		return err
	}

	switch strings.ReplaceAll(key, "-", "_") {
	case "server":
		cfg.Server = value
	case "api_key":
		cfg.APIKey = value
	case "ca_file":
		cfg.CAFile = value
	case "key_file":
		cfg.KeyFile = value
	case "output":
		if _, err := output.ParseFormat(value); err != nil {
			return err
		}
		cfg.Output = value
	default:
		return fmt.Errorf("unknown key %q", key)
	}

	if err := config.Save(cfg, s.ConfigPath); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s updated in %s\n", key, s.ConfigPath)
	return err
}

func configPath(c *cli.Context) error {
	_, err := fmt.Fprintln(c.App.Writer, GetSettings(c).ConfigPath)
	return err
}

// CheckResult summarizes a valid server config.
type CheckResult struct {
	File        string   `json:"file"`
	Status      string   `json:"status"`
	Addr        string   `json:"addr"`
	TLS         bool     `json:"tls"`
	Cipher      string   `json:"cipher,omitempty"`
	Authorities []string `json:"authorities"`
	Revocation  string   `json:"revocation"`
	Key         string   `json:"key"`
}

func configCheck(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("FILE is required")
	}

	cfg, _, err := serverconfig.Load(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	// Derives the key, so a bad salt or passphrase shows up here too.
	if _, err := cfg.ServiceConfig(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	safe := serverconfig.Sanitize(cfg)
	result := CheckResult{
		File:       path,
		Status:     "ok",
		Addr:       safe.Server.HTTP.Addr,
		TLS:        safe.Server.HTTP.TLSCertFile != "",
		Cipher:     safe.Security.Cipher,
		Revocation: safe.Revocation.Backend,
		Key:        safe.Security.Key,
	}
	if result.Key == "" {
		result.Key = "passphrase"
	}
	for _, a := range safe.Authorities {
		result.Authorities = append(result.Authorities, a.Name)
	}
	return Render(c, result)
}

func maskValue(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
