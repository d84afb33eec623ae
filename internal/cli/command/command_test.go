package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fwt-go/pkg/fwt"
)

// testKey is a fixed 32-byte key in base64url.
const testKey = "bg93rvEVr8OVrq7UDxgPQCBvovxSuIUjrbEBR5JwIAI="

// run executes the app with a throwaway profile and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return runWithProfile(t, filepath.Join(t.TempDir(), "cli.yaml"), stdin, args...)
}

func runWithProfile(t *testing.T, profile, stdin string, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"fwt", "--config", profile}, args...))
	return stdout.String(), err
}

// runJSON runs the app with JSON output and decodes stdout into out.
func runJSON(t *testing.T, out any, stdin string, args ...string) error {
	t.Helper()
	stdout, err := run(t, stdin, append([]string{"-o", "json"}, args...)...)
	if stdout != "" {
		if decodeErr := json.Unmarshal([]byte(stdout), out); decodeErr != nil {
			t.Fatalf("decode output %q: %v", stdout, decodeErr)
		}
	}
	return err
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestApp_Structure(t *testing.T) {
	app := App()
	if app.Name != "fwt" {
		t.Errorf("Name = %q, want fwt", app.Name)
	}

	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"keygen", "issue", "validate", "inspect", "remote", "config", "version"} {
		if !names[want] {
			t.Errorf("missing command %q", want)
		}
	}
}

func TestApp_InvalidOutput(t *testing.T) {
	if _, err := run(t, "", "-o", "xml", "version"); err == nil {
		t.Error("unknown output format should fail")
	}
}

func TestVersion(t *testing.T) {
	var info struct {
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
	}
	if err := runJSON(t, &info, "", "version"); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if info.Version == "" || info.GoVersion == "" {
		t.Errorf("version output = %+v", info)
	}
}

func TestVersion_Table(t *testing.T) {
	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "FIELD") || !strings.Contains(out, "go_version") {
		t.Errorf("table output = %q", out)
	}
}

// issueToken issues a token locally with testKey and returns it.
func issueToken(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", append([]string{"issue", "--key", testKey, "-q"}, args...)...)
	if err != nil {
		t.Fatalf("issue %v error = %v", args, err)
	}
	tok := strings.TrimSpace(out)
	if !strings.HasPrefix(tok, "fwt1.") {
		t.Fatalf("issue output = %q, want a text token", out)
	}
	return tok
}

func TestKeyText(t *testing.T) {
	key, err := fwt.DecodeKey(testKey)
	if err != nil || len(key) != 32 {
		t.Fatalf("test key is unusable: %v", err)
	}
}
