package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name    string     `json:"name"`
	Count   int        `json:"count"`
	Expires *time.Time `json:"expires_at,omitempty"`
	Secret  string     `json:"-"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("expected JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("expected YAMLFormatter")
	}
	tf, ok := NewFormatter("unknown", true).(*TableFormatter)
	if !ok || !tf.Wide {
		t.Errorf("NewFormatter(unknown, wide) = %#v", tf)
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, sample{Name: "a<b>", Count: 2, Secret: "s"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"name": "a<b>"`, `"count": 2`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, "secret") || strings.Contains(out, "expires_at") {
		t.Errorf("output has hidden fields:\n%s", out)
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	data := map[string]any{
		"token": sample{Name: "login", Count: 3, Expires: &exp},
		"tags":  []string{"a", "b"},
	}

	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	want := `tags:
  - a
  - b
token:
  name: login
  count: 3
  expires_at: "2030-01-02T03:04:05Z"
`
	if got := buf.String(); got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
}

func TestYAMLFormatter_Nil(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, nil); err != nil {
		t.Fatalf("Format(nil) error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "null" {
		t.Errorf("Format(nil) = %q, want null", buf.String())
	}
}
