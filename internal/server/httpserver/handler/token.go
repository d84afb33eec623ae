package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/yndnr/fwt-go/internal/core/service"
	"github.com/yndnr/fwt-go/pkg/fwt"
)

// maxTTLSeconds is the largest TTL that fits in a time.Duration.
const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

// handleIssueToken handles POST /v1/authorities/{name}/tokens.
func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req IssueTokenRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.TTLSeconds < 0 {
		h.writeError(w, r, http.StatusBadRequest, "FWT-ARG-4000", "invalid argument", "ttl_seconds must not be negative")
		return
	}
	if req.TTLSeconds > maxTTLSeconds {
		h.writeError(w, r, http.StatusBadRequest, "FWT-ARG-4000", "invalid argument", "ttl_seconds is too large")
		return
	}

	svcReq := &service.IssueRequest{
		Authority: r.PathValue("name"),
		TTL:       time.Duration(req.TTLSeconds) * time.Second,
		TokenID:   req.TokenID,
	}
	if req.ValidAt != nil {
		svcReq.ValidAt = *req.ValidAt
	}
	if req.ExpiresAt != nil {
		svcReq.ExpiresAt = *req.ExpiresAt
	}

	var err error
	svcReq.Kind, svcReq.Payload, err = decodePayload(req.PayloadKind, req.Payload)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp, err := h.tokenSvc.Issue(r.Context(), svcReq)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, NewIssueTokenResponse(resp))
}

// handleValidateToken handles POST /v1/authorities/{name}/tokens/validate.
func (h *Handler) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req ValidateTokenRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		h.writeError(w, r, http.StatusBadRequest, "FWT-ARG-4000", "invalid argument", "token is required")
		return
	}

	resp, err := h.tokenSvc.Validate(r.Context(), &service.ValidateRequest{
		Authority: r.PathValue("name"),
		Token:     req.Token,
	})
	if err != nil {
		if service.IsRejection(err) {
			h.writeJSON(w, r, http.StatusOK, NewRejectedResponse(err))
			return
		}
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, NewValidateTokenResponse(resp))
}

// NewIssueTokenResponse converts a service issue result.
func NewIssueTokenResponse(resp *service.IssueResponse) IssueTokenResponse {
	return IssueTokenResponse{
		Token:       resp.Token,
		TokenID:     resp.TokenID,
		ValidAt:     optTime(resp.ValidAt),
		ExpiresAt:   optTime(resp.ExpiresAt),
		Fingerprint: resp.Fingerprint,
	}
}

// NewValidateTokenResponse converts an accepted validation result.
func NewValidateTokenResponse(resp *service.ValidateResponse) ValidateTokenResponse {
	rec := resp.Record
	return ValidateTokenResponse{
		Valid:       true,
		TokenID:     rec.TokenID,
		TokenType:   rec.TokenType,
		ValidAt:     optTime(rec.ValidAt),
		ExpiresAt:   optTime(rec.ExpiresAt),
		PayloadKind: rec.Payload.Kind().String(),
		Payload:     rec.Payload.Value(),
		Fingerprint: resp.Fingerprint,
	}
}

// NewRejectedResponse describes a token refused with err.
func NewRejectedResponse(err error) ValidateTokenResponse {
	return ValidateTokenResponse{
		Valid:   false,
		Code:    fwt.Code(err),
		Message: rejectionMessage(err),
	}
}

// decodePayload turns the JSON payload of an issue request into the value
// the service expects. Binary and custom payloads travel as base64.
func decodePayload(kindName string, raw json.RawMessage) (*fwt.PayloadKind, any, error) {
	present := len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))

	if kindName == "" {
		if !present {
			return nil, nil, nil
		}
		v, err := decodeJSONValue(raw)
		return nil, v, err
	}

	kind, err := fwt.ParsePayloadKind(kindName)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case kind == fwt.KindEmpty:
		return &kind, nil, nil
	case !present:
		return nil, nil, fwt.ErrPayloadType.WithDetails("payload is required for kind %s", kind)
	case kind == fwt.KindText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, nil, fwt.ErrPayloadType.WithDetails("text payload must be a JSON string")
		}
		return &kind, s, nil
	case kind == fwt.KindStructured:
		v, err := decodeJSONValue(raw)
		return &kind, v, err
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, nil, fwt.ErrPayloadType.WithDetails("%s payload must be a base64 string", kind)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, nil, fwt.ErrPayloadType.WithDetails("%s payload is not valid base64", kind)
		}
		return &kind, b, nil
	}
}

func decodeJSONValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fwt.ErrPayloadType.WithDetails("payload is not valid JSON")
	}
	return v, nil
}

// rejectionMessage hides details of authentication failures.
func rejectionMessage(err error) string {
	var fe *fwt.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
