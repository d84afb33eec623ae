package config

import (
	"fmt"

	"github.com/yndnr/fwt-go/internal/core/service"
	"github.com/yndnr/fwt-go/internal/infra/confloader"
	"github.com/yndnr/fwt-go/pkg/crypto/adaptive"
)

// Load reads the file at path (optional) and FWT_* environment variables
// over the defaults, then verifies the result.
func Load(path string) (*ServerConfig, *confloader.Loader, error) {
	var opts []confloader.Option
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	cfg := Default()
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

// ServiceConfig resolves the master key and authorities into a
// service.Config. Callers add the revocation store, metrics and logger.
func (c *ServerConfig) ServiceConfig() (service.Config, error) {
	key, err := c.Security.MasterKey()
	if err != nil {
		return service.Config{}, err
	}

	cipher, err := adaptive.ParseCipherType(c.Security.Cipher)
	if err != nil {
		return service.Config{}, fmt.Errorf("security.cipher: %w", err)
	}

	authorities := make([]service.AuthorityConfig, len(c.Authorities))
	for i, a := range c.Authorities {
		authorities[i] = service.AuthorityConfig{
			Name:       a.Name,
			TokenType:  a.TokenType,
			KeyInfo:    a.KeyInfo,
			DefaultTTL: a.DefaultTTL,
			MaxTTL:     a.MaxTTL,
			AssignIDs:  a.AssignIDs,
		}
	}

	return service.Config{
		MasterKey:   key,
		Cipher:      cipher,
		Authorities: authorities,
	}, nil
}
