package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fwt-go/internal/server/httpserver/handler"
	"github.com/yndnr/fwt-go/pkg/fwt"
)

func payloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "kind",
			Usage:   "Payload kind: empty, text, structured (json), binary, custom-4..custom-7 (default: text when a payload is given)",
			Aliases: []string{"K"},
		},
		&cli.StringFlag{
			Name:    "payload",
			Aliases: []string{"p"},
			Usage:   "Payload value; JSON for structured",
		},
		&cli.StringFlag{
			Name:  "payload-file",
			Usage: "Read the payload from a file",
		},
	}
}

// payloadFromFlags returns the payload kind and value for an issue
// request. A nil kind with a nil value issues an empty payload.
func payloadFromFlags(c *cli.Context) (*fwt.PayloadKind, any, error) {
	if c.IsSet("payload") && c.IsSet("payload-file") {
		return nil, nil, fmt.Errorf("--payload and --payload-file are mutually exclusive")
	}

	var data []byte
	present := false
	switch {
	case c.IsSet("payload"):
		data, present = []byte(c.String("payload")), true
	case c.IsSet("payload-file"):
		b, err := os.ReadFile(c.String("payload-file"))
		if err != nil {
			return nil, nil, fmt.Errorf("read payload file: %w", err)
		}
		data, present = b, true
	}

	name := c.String("kind")
	if name == "" {
		if !present {
			return nil, nil, nil
		}
		name = fwt.KindText.String()
	}
	kind, err := fwt.ParsePayloadKind(name)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case kind == fwt.KindEmpty:
		return &kind, nil, nil
	case !present:
		return nil, nil, fmt.Errorf("--payload or --payload-file is required for kind %s", kind)
	case kind == fwt.KindText:
		return &kind, string(data), nil
	case kind == fwt.KindStructured:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("structured payload is not valid JSON: %w", err)
		}
		return &kind, v, nil
	default:
		return &kind, data, nil
	}
}

// remotePayload encodes a payload the way the issue endpoint expects:
// text as a JSON string, binary and custom as base64 strings.
func remotePayload(req *handler.IssueTokenRequest, kind *fwt.PayloadKind, value any) error {
	if kind != nil {
		req.PayloadKind = kind.String()
	}
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req.Payload = raw
	return nil
}
