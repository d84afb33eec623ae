package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	serverconfig "github.com/yndnr/fwt-go/internal/server/config"
	"github.com/yndnr/fwt-go/pkg/crypto/kdf"
	"github.com/yndnr/fwt-go/pkg/fwt"
	"github.com/yndnr/fwt-go/pkg/token"
)

// KeygenCommand returns the keygen command.
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a master key or an API key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "passphrase",
				Usage:   "Derive the key from a passphrase with argon2id",
				EnvVars: []string{"FWT_CLI_PASSPHRASE"},
			},
			&cli.StringFlag{
				Name:  "salt",
				Usage: "Base64url salt for --passphrase (default: random)",
			},
			&cli.BoolFlag{
				Name:  "api-key",
				Usage: "Generate an API key secret and its SHA-256 hash for server.http.api_key_hashes",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write the key to this file (mode 0600) instead of printing it",
			},
		},
		Action: keygen,
	}
}

// KeyResult is the output of keygen. Salt is set for passphrase keys.
type KeyResult struct {
	Key  string `json:"key"`
	Salt string `json:"salt,omitempty"`
}

// APIKeyResult is the output of keygen --api-key.
type APIKeyResult struct {
	Secret string `json:"secret"`
	Hash   string `json:"hash"`
}

func keygen(c *cli.Context) error {
	if c.Bool("api-key") {
		if c.IsSet("passphrase") || c.IsSet("salt") {
			return fmt.Errorf("--api-key does not take --passphrase or --salt")
		}
		secret, err := token.NewSecret()
		if err != nil {
			return err
		}
		return Render(c, APIKeyResult{Secret: secret, Hash: token.Hash(secret)})
	}

	result, err := generateKey(c.String("passphrase"), c.String("salt"))
	if err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		if err := os.WriteFile(out, []byte(result.Key+"\n"), 0o600); err != nil {
			return fmt.Errorf("write key: %w", err)
		}
		if result.Salt == "" {
			_, err := fmt.Fprintf(c.App.Writer, "key written to %s\n", out)
			return err
		}
		return Render(c, struct {
			File string `json:"file"`
			Salt string `json:"salt"`
		}{out, result.Salt})
	}
	return Render(c, result)
}

func generateKey(passphrase, salt string) (*KeyResult, error) {
	if passphrase == "" {
		if salt != "" {
			return nil, fmt.Errorf("--salt requires --passphrase")
		}
		key, err := fwt.GenerateKey()
		if err != nil {
			return nil, err
		}
		defer kdf.Zero(key)
		return &KeyResult{Key: fwt.EncodeKey(key)}, nil
	}

	if salt == "" {
		b, err := kdf.NewSalt()
		if err != nil {
			return nil, err
		}
		salt = serverconfig.EncodeSalt(b)
	}
	sec := serverconfig.SecuritySection{Passphrase: passphrase, Salt: salt}
	key, err := sec.MasterKey()
	if err != nil {
		return nil, err
	}
	defer kdf.Zero(key)
	return &KeyResult{Key: fwt.EncodeKey(key), Salt: salt}, nil
}
