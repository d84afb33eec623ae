package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fwt-go/internal/core/service"
	"github.com/yndnr/fwt-go/internal/server/httpserver/handler"
	"github.com/yndnr/fwt-go/pkg/fwt"
	"github.com/yndnr/fwt-go/pkg/token"
)

// issueFlags are shared by the local and remote issue commands.
func issueFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.DurationFlag{
			Name:  "ttl",
			Usage: "Token lifetime (e.g., 15m, 12h)",
		},
		&cli.StringFlag{
			Name:  "expires-at",
			Usage: "Expiry instant (RFC 3339); takes precedence over --ttl",
		},
		&cli.StringFlag{
			Name:  "valid-at",
			Usage: "Earliest acceptance instant (RFC 3339)",
		},
		&cli.StringFlag{
			Name:  "id",
			Usage: "Token ID to embed",
		},
		&cli.BoolFlag{
			Name:  "assign-id",
			Usage: "Embed a generated ULID token ID",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Print only the token",
		},
	}
	return append(flags, payloadFlags()...)
}

// lifetime holds the parsed lifetime and ID flags.
type lifetime struct {
	ValidAt   time.Time
	ExpiresAt time.Time
	TTL       time.Duration
	TokenID   *string
}

func lifetimeFromFlags(c *cli.Context) (*lifetime, error) {
	l := &lifetime{TTL: c.Duration("ttl")}
	if l.TTL < 0 {
		return nil, fmt.Errorf("--ttl must not be negative")
	}

	var err error
	if l.ValidAt, err = parseInstant(c, "valid-at"); err != nil {
		return nil, err
	}
	if l.ExpiresAt, err = parseInstant(c, "expires-at"); err != nil {
		return nil, err
	}

	switch {
	case c.IsSet("id") && c.Bool("assign-id"):
		return nil, fmt.Errorf("--id and --assign-id are mutually exclusive")
	case c.IsSet("id"):
		id := c.String("id")
		l.TokenID = &id
	case c.Bool("assign-id"):
		id := token.NewID()
		l.TokenID = &id
	}
	return l, nil
}

func parseInstant(c *cli.Context, name string) (time.Time, error) {
	s := c.String(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

// IssueCommand returns the local issue command.
func IssueCommand() *cli.Command {
	return &cli.Command{
		Name:   "issue",
		Usage:  "Issue a token with a local key",
		Flags:  append(keyFlags(), issueFlags()...),
		Action: issueLocal,
	}
}

func issueLocal(c *cli.Context) error {
	svc, authority, err := localService(c)
	if err != nil {
		return err
	}
	l, err := lifetimeFromFlags(c)
	if err != nil {
		return err
	}
	kind, value, err := payloadFromFlags(c)
	if err != nil {
		return err
	}

	resp, err := svc.Issue(context.Background(), &service.IssueRequest{
		Authority: authority,
		Kind:      kind,
		Payload:   value,
		ValidAt:   l.ValidAt,
		ExpiresAt: l.ExpiresAt,
		TTL:       l.TTL,
		TokenID:   l.TokenID,
	})
	if err != nil {
		return err
	}
	return renderIssued(c, handler.NewIssueTokenResponse(resp))
}

func renderIssued(c *cli.Context, resp handler.IssueTokenResponse) error {
	if c.Bool("quiet") {
		_, err := fmt.Fprintln(c.App.Writer, resp.Token)
		return err
	}
	return Render(c, resp)
}

// ValidateCommand returns the local validate command.
func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a token with a local key (exit status 1 when rejected)",
		ArgsUsage: "[TOKEN|-]",
		Flags:     keyFlags(),
		Action:    validateLocal,
	}
}

func validateLocal(c *cli.Context) error {
	svc, authority, err := localService(c)
	if err != nil {
		return err
	}
	tok, err := readArg(c, "token")
	if err != nil {
		return err
	}

	resp, err := svc.Validate(context.Background(), &service.ValidateRequest{Authority: authority, Token: tok})
	if err != nil {
		if service.IsRejection(err) {
			return renderValidation(c, handler.NewRejectedResponse(err))
		}
		return err
	}
	return renderValidation(c, handler.NewValidateTokenResponse(resp))
}

// renderValidation prints the result and turns a rejection into exit
// status 1.
func renderValidation(c *cli.Context, resp handler.ValidateTokenResponse) error {
	if err := Render(c, resp); err != nil {
		return err
	}
	if !resp.Valid {
		return cli.Exit("", 1)
	}
	return nil
}

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Decrypt a token and show its contents without checking time or type",
		ArgsUsage: "[TOKEN|-]",
		Flags:     keyFlags(),
		Action:    inspect,
	}
}

// InspectResult describes a decrypted token. Status reports what
// validation would say right now.
type InspectResult struct {
	Status      string     `json:"status"`
	Code        string     `json:"code,omitempty"`
	TokenID     *string    `json:"token_id,omitempty"`
	TokenType   *string    `json:"token_type,omitempty"`
	ValidAt     *time.Time `json:"valid_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	PayloadKind string     `json:"payload_kind"`
	Payload     any        `json:"payload,omitempty"`
	Fingerprint string     `json:"fingerprint"`
}

func inspect(c *cli.Context) error {
	svc, name, err := localService(c)
	if err != nil {
		return err
	}
	a, err := svc.Authority(name)
	if err != nil {
		return err
	}
	tok, err := readArg(c, "token")
	if err != nil {
		return err
	}

	raw, err := fwt.DecodeToken(tok)
	if err != nil {
		return err
	}
	rec, err := a.Open(raw)
	if err != nil {
		return err
	}

	result := InspectResult{
		Status:      "valid",
		TokenID:     rec.TokenID,
		TokenType:   rec.TokenType,
		ValidAt:     utcTime(rec.ValidAt),
		ExpiresAt:   utcTime(rec.ExpiresAt),
		PayloadKind: rec.PayloadKind().String(),
		Payload:     rec.Payload.Value(),
		Fingerprint: token.Fingerprint(raw),
	}
	if _, err := a.Validate(raw); err != nil {
		result.Status = "rejected"
		result.Code = fwt.Code(err)
	}
	return Render(c, result)
}

func utcTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
