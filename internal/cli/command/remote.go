package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fwt-go/internal/cli/connection"
	"github.com/yndnr/fwt-go/internal/server/httpserver/handler"
)

// remoteTimeout bounds one remote command.
const remoteTimeout = 30 * time.Second

// RemoteCommand returns the remote subcommand group.
func RemoteCommand() *cli.Command {
	return &cli.Command{
		Name:    "remote",
		Aliases: []string{"r"},
		Usage:   "Call an fwt-server",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Show server health",
				Action: remoteHealth,
			},
			{
				Name:      "issue",
				Usage:     "Issue a token",
				ArgsUsage: "AUTHORITY",
				Flags:     issueFlags(),
				Action:    remoteIssue,
			},
			{
				Name:      "validate",
				Usage:     "Validate a token (exit status 1 when rejected)",
				ArgsUsage: "AUTHORITY [TOKEN|-]",
				Action:    remoteValidate,
			},
			{
				Name:      "revoke",
				Usage:     "Revoke a token by ID or by token",
				ArgsUsage: "AUTHORITY",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Token ID to revoke",
					},
					&cli.StringFlag{
						Name:  "token",
						Usage: "Token to revoke; its ID and expiry are used",
					},
					&cli.StringFlag{
						Name:  "until",
						Usage: "End of the revocation window (RFC 3339)",
					},
				},
				Action: remoteRevoke,
			},
			{
				Name:   "status",
				Usage:  "Show server status (local socket only)",
				Action: remoteStatus,
			},
			{
				Name:      "log-level",
				Usage:     "Change the server log level (local socket only)",
				ArgsUsage: "LEVEL",
				Action:    remoteLogLevel,
			},
		},
	}
}

func remoteContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), remoteTimeout)
}

func remoteHealth(c *cli.Context) error {
	client, err := RemoteClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := remoteContext()
	defer cancel()

	resp, err := client.Health(ctx)
	if err != nil {
		return err
	}
	return Render(c, resp)
}

func remoteIssue(c *cli.Context) error {
	authority := c.Args().First()
	if authority == "" {
		return fmt.Errorf("AUTHORITY is required")
	}
	l, err := lifetimeFromFlags(c)
	if err != nil {
		return err
	}
	kind, value, err := payloadFromFlags(c)
	if err != nil {
		return err
	}

	req := &handler.IssueTokenRequest{
		TTLSeconds: int64(l.TTL / time.Second),
		TokenID:    l.TokenID,
	}
	if l.TTL > 0 && req.TTLSeconds == 0 {
		return fmt.Errorf("--ttl must be at least 1s for remote issue")
	}
	if !l.ValidAt.IsZero() {
		req.ValidAt = &l.ValidAt
	}
	if !l.ExpiresAt.IsZero() {
		req.ExpiresAt = &l.ExpiresAt
	}
	if err := remotePayload(req, kind, value); err != nil {
		return err
	}

	client, err := RemoteClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := remoteContext()
	defer cancel()

	resp, err := client.Issue(ctx, authority, req)
	if err != nil {
		return err
	}
	return renderIssued(c, *resp)
}

func remoteValidate(c *cli.Context) error {
	authority := c.Args().First()
	if authority == "" {
		return fmt.Errorf("AUTHORITY is required")
	}
	tok := c.Args().Get(1)
	if tok == "" || tok == "-" {
		var err error
		if tok, err = readStdin(c, "token"); err != nil {
			return err
		}
	}

	client, err := RemoteClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := remoteContext()
	defer cancel()

	resp, err := client.Validate(ctx, authority, tok)
	if err != nil {
		return err
	}
	return renderValidation(c, *resp)
}

func remoteRevoke(c *cli.Context) error {
	authority := c.Args().First()
	if authority == "" {
		return fmt.Errorf("AUTHORITY is required")
	}
	req := &handler.RevokeRequest{
		Authority: authority,
		TokenID:   c.String("id"),
		Token:     c.String("token"),
	}
	if req.TokenID == "" && req.Token == "" {
		return fmt.Errorf("--id or --token is required")
	}
	until, err := parseInstant(c, "until")
	if err != nil {
		return err
	}
	if !until.IsZero() {
		req.Until = &until
	}

	client, err := RemoteClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := remoteContext()
	defer cancel()

	resp, err := client.Revoke(ctx, req)
	if err != nil {
		return err
	}
	return Render(c, resp)
}

// localClient returns a client for commands served only on the local
// management socket.
func localClient(c *cli.Context) (*connection.HTTPClient, error) {
	client, err := RemoteClient(c)
	if err != nil {
		return nil, err
	}
	if client.Socket() == "" {
		return nil, fmt.Errorf("%s needs the local socket (use --server unix:///path/to/socket)", c.Command.Name)
	}
	return client, nil
}

func remoteStatus(c *cli.Context) error {
	client, err := localClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := remoteContext()
	defer cancel()

	resp, err := client.Status(ctx)
	if err != nil {
		return err
	}
	return Render(c, resp)
}

func remoteLogLevel(c *cli.Context) error {
	level := c.Args().First()
	if level == "" {
		return fmt.Errorf("LEVEL is required")
	}
	client, err := localClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := remoteContext()
	defer cancel()

	resp, err := client.SetLogLevel(ctx, level)
	if err != nil {
		return err
	}
	return Render(c, resp)
}
