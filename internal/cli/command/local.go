package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fwt-go/internal/core/service"
	serverconfig "github.com/yndnr/fwt-go/internal/server/config"
	"github.com/yndnr/fwt-go/internal/telemetry/logger"
)

// localAuthority names the ad-hoc authority built from key flags.
const localAuthority = "local"

// keyFlags select the key material for local commands. Either a server
// config file with an authority name, or a key given directly.
func keyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "server-config",
			Usage: "Read authorities and key from an fwt-server config file",
		},
		&cli.StringFlag{
			Name:    "authority",
			Aliases: []string{"a"},
			Usage:   "Authority name in --server-config",
		},
		&cli.StringFlag{
			Name:    "key",
			Aliases: []string{"k"},
			Usage:   "Base64url master key",
			EnvVars: []string{"FWT_CLI_KEY"},
		},
		&cli.StringFlag{
			Name:  "key-file",
			Usage: "File holding the base64url master key",
		},
		&cli.StringFlag{
			Name:    "passphrase",
			Usage:   "Derive the master key from a passphrase (requires --salt)",
			EnvVars: []string{"FWT_CLI_PASSPHRASE"},
		},
		&cli.StringFlag{
			Name:  "salt",
			Usage: "Base64url salt for --passphrase",
		},
		&cli.StringFlag{
			Name:  "key-info",
			Usage: "Derive an authority key from the master key with this HKDF info",
		},
		&cli.StringFlag{
			Name:  "cipher",
			Usage: "AEAD: aes-gcm or chacha20-poly1305 (default: hardware dependent)",
		},
		&cli.StringFlag{
			Name:    "type",
			Aliases: []string{"t"},
			Usage:   "Token type stamped into and required of tokens",
		},
	}
}

// localService builds a TokenService from key flags and returns it with
// the authority commands should use.
func localService(c *cli.Context) (*service.TokenService, string, error) {
	if path := c.String("server-config"); path != "" {
		return serverConfigService(c, path)
	}

	sec := serverconfig.SecuritySection{
		Key:        c.String("key"),
		Passphrase: c.String("passphrase"),
		Salt:       c.String("salt"),
		Cipher:     c.String("cipher"),
	}
	if sec.Key == "" && sec.Passphrase == "" {
		keyFile := c.String("key-file")
		if keyFile == "" {
			keyFile = GetSettings(c).KeyFile
		}
		if keyFile == "" {
			return nil, "", fmt.Errorf("no key given (use --key, --key-file, --passphrase or --server-config)")
		}
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, "", fmt.Errorf("read key file: %w", err)
		}
		sec.Key = strings.TrimSpace(string(data))
	}

	cfg := &serverconfig.ServerConfig{
		Security: sec,
		Authorities: []serverconfig.AuthorityConfig{{
			Name:      localAuthority,
			TokenType: c.String("type"),
			KeyInfo:   c.String("key-info"),
		}},
	}
	svc, err := newService(cfg)
	if err != nil {
		return nil, "", err
	}
	return svc, localAuthority, nil
}

func serverConfigService(c *cli.Context, path string) (*service.TokenService, string, error) {
	cfg, _, err := serverconfig.Load(path)
	if err != nil {
		return nil, "", err
	}

	name := c.String("authority")
	if name == "" {
		if len(cfg.Authorities) != 1 {
			return nil, "", fmt.Errorf("--authority is required: %s defines %d authorities", path, len(cfg.Authorities))
		}
		name = cfg.Authorities[0].Name
	}
	if _, ok := cfg.Authority(name); !ok {
		return nil, "", fmt.Errorf("authority %q is not defined in %s", name, path)
	}

	// Revocations live in the server; local commands never consult them.
	svc, err := newService(cfg)
	if err != nil {
		return nil, "", err
	}
	return svc, name, nil
}

func newService(cfg *serverconfig.ServerConfig) (*service.TokenService, error) {
	sc, err := cfg.ServiceConfig()
	if err != nil {
		return nil, err
	}
	sc.Logger = logger.NewNop()
	return service.NewTokenService(sc)
}
