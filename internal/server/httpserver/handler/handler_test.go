package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/fwt-go/internal/core/service"
	"github.com/yndnr/fwt-go/internal/storage"
	"github.com/yndnr/fwt-go/internal/telemetry/logger"
	"github.com/yndnr/fwt-go/internal/telemetry/metric"
	"github.com/yndnr/fwt-go/pkg/fwt"
)

const testKey = "bg93rvEVr8OVrq7UDxgPQCBvovxSuIUjrbEBR5JwIAI="

var testAuthorities = []service.AuthorityConfig{
	{Name: "login", TokenType: "LOGIN", DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour, AssignIDs: true},
	{Name: "invite", KeyInfo: "invite-v1"},
}

func newTestHandler(t *testing.T, withRevocations bool) *Handler {
	t.Helper()

	key, err := fwt.DecodeKey(testKey)
	if err != nil {
		t.Fatal(err)
	}

	cfg := service.Config{
		MasterKey:   key,
		Authorities: testAuthorities,
		Logger:      logger.NewNop(),
	}
	if withRevocations {
		store := storage.NewMemoryRevocationStore(0, nil)
		t.Cleanup(func() { store.Close() })
		cfg.Revocations = store
	}

	svc, err := service.NewTokenService(cfg)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return New(svc, metric.NewRegistry().Handler(), nil)
}

// envelope mirrors Response with a typed data field.
type envelope[T any] struct {
	RequestID string     `json:"request_id"`
	Timestamp int64      `json:"timestamp"`
	Data      T          `json:"data"`
	Error     *ErrorBody `json:"error"`
}

func do[T any](t *testing.T, h http.Handler, method, path, body string) (int, envelope[T]) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope[T]
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	if env.Error != nil && rec.Header().Get("X-Error-Code") != env.Error.Code {
		t.Errorf("X-Error-Code = %q, want %q", rec.Header().Get("X-Error-Code"), env.Error.Code)
	}
	return rec.Code, env
}

func issue(t *testing.T, h http.Handler, authority, body string) IssueTokenResponse {
	t.Helper()
	status, env := do[IssueTokenResponse](t, h, http.MethodPost, "/v1/authorities/"+authority+"/tokens", body)
	if status != http.StatusCreated {
		t.Fatalf("issue status = %d, error = %+v", status, env.Error)
	}
	return env.Data
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, true)

	status, env := do[HealthResponse](t, h, http.MethodGet, "/health", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if env.Data.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", env.Data.Status)
	}
	if strings.Join(env.Data.Authorities, ",") != "invite,login" {
		t.Errorf("Authorities = %v", env.Data.Authorities)
	}
	if env.Timestamp == 0 {
		t.Error("Timestamp not set")
	}
}

func TestListAuthorities(t *testing.T) {
	h := newTestHandler(t, true)

	status, env := do[AuthoritiesResponse](t, h, http.MethodGet, "/v1/authorities", "")
	if status != http.StatusOK || len(env.Data.Authorities) != 2 {
		t.Errorf("status = %d, authorities = %v", status, env.Data.Authorities)
	}
}

func TestMetricsRoute(t *testing.T) {
	h := newTestHandler(t, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	noMetrics := New(h.tokenSvc, nil, nil)
	rec = httptest.NewRecorder()
	noMetrics.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status without metrics = %d, want 404", rec.Code)
	}
}

func TestIssueAndValidate(t *testing.T) {
	h := newTestHandler(t, true)

	tests := []struct {
		name      string
		authority string
		body      string
		wantKind  string
		check     func(t *testing.T, v ValidateTokenResponse)
	}{
		{
			name:      "structured inferred",
			authority: "login",
			body:      `{"payload":{"user_id":1234}}`,
			wantKind:  "structured",
			check: func(t *testing.T, v ValidateTokenResponse) {
				m, ok := v.Payload.(map[string]any)
				if !ok || m["user_id"] != float64(1234) {
					t.Errorf("Payload = %#v", v.Payload)
				}
				if v.TokenType == nil || *v.TokenType != "LOGIN" {
					t.Errorf("TokenType = %v, want LOGIN", v.TokenType)
				}
				if v.TokenID == nil || len(*v.TokenID) != 26 {
					t.Errorf("TokenID = %v, want a ULID", v.TokenID)
				}
				if v.ExpiresAt == nil {
					t.Error("ExpiresAt not set, want default ttl")
				}
			},
		},
		{
			name:      "text inferred",
			authority: "invite",
			body:      `{"payload":"hello"}`,
			wantKind:  "text",
			check: func(t *testing.T, v ValidateTokenResponse) {
				if v.Payload != "hello" {
					t.Errorf("Payload = %#v, want hello", v.Payload)
				}
				if v.TokenID != nil || v.ExpiresAt != nil {
					t.Errorf("TokenID = %v, ExpiresAt = %v, want none", v.TokenID, v.ExpiresAt)
				}
			},
		},
		{
			name:      "binary",
			authority: "invite",
			body:      `{"payload_kind":"binary","payload":"AAEC"}`,
			wantKind:  "binary",
			check: func(t *testing.T, v ValidateTokenResponse) {
				if v.Payload != "AAEC" {
					t.Errorf("Payload = %#v, want base64 AAEC", v.Payload)
				}
			},
		},
		{
			name:      "empty",
			authority: "invite",
			body:      `{"token_id":"inv-1","ttl_seconds":60}`,
			wantKind:  "empty",
			check: func(t *testing.T, v ValidateTokenResponse) {
				if v.Payload != nil {
					t.Errorf("Payload = %#v, want nil", v.Payload)
				}
				if v.TokenID == nil || *v.TokenID != "inv-1" {
					t.Errorf("TokenID = %v, want inv-1", v.TokenID)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issued := issue(t, h, tt.authority, tt.body)
			if !strings.HasPrefix(issued.Token, "fwt1.") {
				t.Errorf("Token = %q, want fwt1. prefix", issued.Token)
			}
			if len(issued.Fingerprint) != 16 {
				t.Errorf("Fingerprint = %q", issued.Fingerprint)
			}

			body, _ := json.Marshal(ValidateTokenRequest{Token: issued.Token})
			status, env := do[ValidateTokenResponse](t, h, http.MethodPost, "/v1/authorities/"+tt.authority+"/tokens/validate", string(body))
			if status != http.StatusOK {
				t.Fatalf("validate status = %d, error = %+v", status, env.Error)
			}
			v := env.Data
			if !v.Valid {
				t.Fatalf("Valid = false, code = %s", v.Code)
			}
			if v.PayloadKind != tt.wantKind {
				t.Errorf("PayloadKind = %q, want %q", v.PayloadKind, tt.wantKind)
			}
			if v.Fingerprint != issued.Fingerprint {
				t.Errorf("Fingerprint = %q, want %q", v.Fingerprint, issued.Fingerprint)
			}
			tt.check(t, v)
		})
	}
}

func TestValidate_Rejections(t *testing.T) {
	h := newTestHandler(t, true)
	login := issue(t, h, "login", `{"payload":"x"}`)
	expired := issue(t, h, "invite", `{"expires_at":"2001-01-01T00:00:00Z"}`)
	future := issue(t, h, "invite", `{"valid_at":"2999-01-01T00:00:00Z"}`)

	tests := []struct {
		name      string
		authority string
		token     string
		wantCode  string
	}{
		{"wrong authority", "invite", login.Token, "FWT-TOKN-4010"},
		{"expired", "invite", expired.Token, "FWT-TOKN-4011"},
		{"not yet valid", "invite", future.Token, "FWT-TOKN-4012"},
		{"not base64", "login", "fwt1.!!!", "FWT-TOKN-4010"},
		{"truncated", "login", login.Token[:20], "FWT-TOKN-4010"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(ValidateTokenRequest{Token: tt.token})
			status, env := do[ValidateTokenResponse](t, h, http.MethodPost, "/v1/authorities/"+tt.authority+"/tokens/validate", string(body))
			if status != http.StatusOK {
				t.Fatalf("status = %d, want 200", status)
			}
			if env.Data.Valid {
				t.Fatal("Valid = true, want false")
			}
			if env.Data.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", env.Data.Code, tt.wantCode)
			}
			if env.Data.Payload != nil || env.Data.TokenID != nil {
				t.Error("rejection leaked record fields")
			}
		})
	}
}

func TestRequestErrors(t *testing.T) {
	h := newTestHandler(t, true)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown authority issue", http.MethodPost, "/v1/authorities/nope/tokens", `{}`, http.StatusNotFound, "FWT-AUTH-4040"},
		{"unknown authority validate", http.MethodPost, "/v1/authorities/nope/tokens/validate", `{"token":"x"}`, http.StatusNotFound, "FWT-AUTH-4040"},
		{"bad json", http.MethodPost, "/v1/authorities/login/tokens", `{`, http.StatusBadRequest, "FWT-SYS-4000"},
		{"negative ttl", http.MethodPost, "/v1/authorities/login/tokens", `{"ttl_seconds":-1}`, http.StatusBadRequest, "FWT-ARG-4000"},
		{"ttl overflows duration", http.MethodPost, "/v1/authorities/login/tokens", `{"ttl_seconds":9223372037}`, http.StatusBadRequest, "FWT-ARG-4000"},
		{"ttl max int64", http.MethodPost, "/v1/authorities/login/tokens", `{"ttl_seconds":9223372036854775807}`, http.StatusBadRequest, "FWT-ARG-4000"},
		{"lifetime exceeded", http.MethodPost, "/v1/authorities/login/tokens", `{"ttl_seconds":172800}`, http.StatusBadRequest, "FWT-ARG-4001"},
		{"bad kind", http.MethodPost, "/v1/authorities/login/tokens", `{"payload_kind":"custom-9","payload":"AA=="}`, http.StatusBadRequest, "FWT-PAY-4003"},
		{"text kind mismatch", http.MethodPost, "/v1/authorities/login/tokens", `{"payload_kind":"text","payload":1}`, http.StatusBadRequest, "FWT-PAY-4001"},
		{"bad base64", http.MethodPost, "/v1/authorities/login/tokens", `{"payload_kind":"binary","payload":"***"}`, http.StatusBadRequest, "FWT-PAY-4001"},
		{"long token id", http.MethodPost, "/v1/authorities/login/tokens", `{"token_id":"` + strings.Repeat("a", 256) + `"}`, http.StatusBadRequest, "FWT-ENC-4001"},
		{"missing token", http.MethodPost, "/v1/authorities/login/tokens/validate", `{}`, http.StatusBadRequest, "FWT-ARG-4000"},
		{"missing authority", http.MethodPost, "/v1/revocations", `{"token_id":"x"}`, http.StatusBadRequest, "FWT-ARG-4000"},
		{"body too large", http.MethodPost, "/v1/authorities/login/tokens", `{"payload":"` + strings.Repeat("a", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge, "FWT-SYS-4130"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do[json.RawMessage](t, h, tt.method, tt.path, tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if env.Error == nil {
				t.Fatal("error body missing")
			}
			if env.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q (%s)", env.Error.Code, tt.wantCode, env.Error.Details)
			}
		})
	}
}

func TestRevoke(t *testing.T) {
	h := newTestHandler(t, true)
	issued := issue(t, h, "login", `{"payload":"x"}`)
	validate := func() ValidateTokenResponse {
		body, _ := json.Marshal(ValidateTokenRequest{Token: issued.Token})
		_, env := do[ValidateTokenResponse](t, h, http.MethodPost, "/v1/authorities/login/tokens/validate", string(body))
		return env.Data
	}

	if !validate().Valid {
		t.Fatal("token invalid before revocation")
	}

	body, _ := json.Marshal(RevokeRequest{Authority: "login", Token: issued.Token})
	status, env := do[RevokeResponse](t, h, http.MethodPost, "/v1/revocations", string(body))
	if status != http.StatusOK {
		t.Fatalf("revoke status = %d, error = %+v", status, env.Error)
	}
	if env.Data.TokenID != *issued.TokenID {
		t.Errorf("TokenID = %q, want %q", env.Data.TokenID, *issued.TokenID)
	}
	if !env.Data.Until.Equal(*issued.ExpiresAt) {
		t.Errorf("Until = %v, want token expiry %v", env.Data.Until, *issued.ExpiresAt)
	}

	v := validate()
	if v.Valid || v.Code != "FWT-TOKN-4014" {
		t.Errorf("after revoke Valid = %v, Code = %q, want FWT-TOKN-4014", v.Valid, v.Code)
	}
}

func TestRevoke_Errors(t *testing.T) {
	h := newTestHandler(t, true)
	noID := issue(t, h, "invite", `{}`)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"nothing to revoke", `{"authority":"login"}`, http.StatusBadRequest, "FWT-ARG-4000"},
		{"token without id", `{"authority":"invite","token":"` + noID.Token + `"}`, http.StatusBadRequest, "FWT-ARG-4000"},
		{"until in past", `{"authority":"login","token_id":"a","until":"2001-01-01T00:00:00Z"}`, http.StatusBadRequest, "FWT-ARG-4000"},
		{"no max ttl", `{"authority":"invite","token_id":"a"}`, http.StatusBadRequest, "FWT-ARG-4000"},
		{"foreign token", `{"authority":"login","token":"` + noID.Token + `"}`, http.StatusUnauthorized, "FWT-TOKN-4010"},
		{"unknown authority", `{"authority":"nope","token_id":"a"}`, http.StatusNotFound, "FWT-AUTH-4040"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do[json.RawMessage](t, h, http.MethodPost, "/v1/revocations", tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestRevoke_Disabled(t *testing.T) {
	h := newTestHandler(t, false)

	status, env := do[json.RawMessage](t, h, http.MethodPost, "/v1/revocations", `{"authority":"login","token_id":"a"}`)
	if status != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", status)
	}
	if env.Error == nil || env.Error.Code != "FWT-SYS-5010" {
		t.Errorf("error = %+v, want FWT-SYS-5010", env.Error)
	}
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"FWT-AUTH-4040", http.StatusNotFound},
		{"FWT-SYS-4290", http.StatusTooManyRequests},
		{"FWT-AUTH-4010", http.StatusUnauthorized},
		{"FWT-TOKN-4011", http.StatusUnauthorized},
		{"FWT-TOKN-4014", http.StatusUnauthorized},
		{"FWT-AUTH-4030", http.StatusForbidden},
		{"FWT-TOKN-4000", http.StatusBadRequest},
		{"FWT-ARG-4001", http.StatusBadRequest},
		{"FWT-PAY-4002", http.StatusBadRequest},
		{"FWT-SYS-5010", http.StatusNotImplemented},
		{"FWT-SYS-5000", http.StatusInternalServerError},
		{"UNKNOWN", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := errorCodeToHTTPStatus(tt.code); got != tt.want {
				t.Errorf("errorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestWriteError_RequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithRequestID(req.Context(), "req-123"))
	rec := httptest.NewRecorder()

	WriteError(rec, req, http.StatusTeapot, "FWT-SYS-4180", "teapot", "")

	var resp Response
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.RequestID != "req-123" {
		t.Errorf("RequestID = %q, want req-123", resp.RequestID)
	}
	if rec.Code != http.StatusTeapot || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("status = %d, content-type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}
