package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yndnr/fwt-go/internal/telemetry/logger"
	"github.com/yndnr/fwt-go/internal/telemetry/metric"
	"github.com/yndnr/fwt-go/pkg/crypto/adaptive"
	"github.com/yndnr/fwt-go/pkg/crypto/kdf"
	"github.com/yndnr/fwt-go/pkg/fwt"
	"github.com/yndnr/fwt-go/pkg/token"
)

// RevocationRepository defines the storage interface for revocations.
type RevocationRepository interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	IsRevoked(ctx context.Context, id string, now time.Time) (bool, error)
}

// AuthorityConfig configures one named authority.
type AuthorityConfig struct {
	Name string

	// TokenType is stamped into tokens and enforced on validation.
	// Empty means untyped.
	TokenType string

	// KeyInfo derives the authority key from the master key with HKDF.
	// Empty means the master key is used directly.
	KeyInfo string

	DefaultTTL time.Duration
	MaxTTL     time.Duration
	AssignIDs  bool
}

// Config holds configuration for TokenService.
type Config struct {
	// MasterKey is the 32-byte root key. NewTokenService does not retain it.
	MasterKey []byte

	// Cipher selects the AEAD. Empty picks the hardware default.
	Cipher adaptive.CipherType

	Authorities []AuthorityConfig

	// Revocations is optional. Without it Revoke fails and IsRevoked is
	// never consulted.
	Revocations RevocationRepository

	// Metrics is optional.
	Metrics *metric.Registry

	// Logger defaults to the context logger.
	Logger logger.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

type authority struct {
	cfg AuthorityConfig
	fwt *fwt.Authority
}

// TokenService issues, validates and revokes tokens for named authorities.
type TokenService struct {
	authorities map[string]*authority
	revocations RevocationRepository
	metrics     *metric.Registry
	logger      logger.Logger
	now         func() time.Time
}

// NewTokenService creates a TokenService with one authority per entry in
// cfg.Authorities.
func NewTokenService(cfg Config) (*TokenService, error) {
	if len(cfg.MasterKey) != adaptive.KeySize {
		return nil, fwt.ErrInvalidKey.WithDetails("master key is %d bytes, want %d", len(cfg.MasterKey), adaptive.KeySize)
	}
	if len(cfg.Authorities) == 0 {
		return nil, ErrInvalidArgument.WithDetails("at least one authority is required")
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	s := &TokenService{
		authorities: make(map[string]*authority, len(cfg.Authorities)),
		revocations: cfg.Revocations,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		now:         now,
	}

	for _, ac := range cfg.Authorities {
		if ac.Name == "" {
			return nil, ErrInvalidArgument.WithDetails("authority name is empty")
		}
		if _, dup := s.authorities[ac.Name]; dup {
			return nil, ErrInvalidArgument.WithDetails("authority %q is duplicated", ac.Name)
		}

		a, err := newAuthority(cfg.MasterKey, cfg.Cipher, ac, now)
		if err != nil {
			return nil, fmt.Errorf("authority %q: %w", ac.Name, err)
		}
		s.authorities[ac.Name] = &authority{cfg: ac, fwt: a}
	}

	return s, nil
}

func newAuthority(master []byte, cipher adaptive.CipherType, ac AuthorityConfig, now func() time.Time) (*fwt.Authority, error) {
	key := master
	if ac.KeyInfo != "" {
		sub, err := kdf.DeriveSubkey(master, ac.KeyInfo)
		if err != nil {
			return nil, err
		}
		// The cipher keeps its own copy of the key schedule.
		defer kdf.Zero(sub)
		key = sub
	}

	opts := []fwt.Option{fwt.WithClock(now), fwt.WithCipherType(cipher)}
	if ac.TokenType != "" {
		opts = append(opts, fwt.WithTokenType(ac.TokenType))
	}
	return fwt.NewAuthority(key, opts...)
}

// Authorities returns the configured authority names, sorted.
func (s *TokenService) Authorities() []string {
	names := make([]string, 0, len(s.authorities))
	for name := range s.authorities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Authority returns the fwt.Authority registered under name.
func (s *TokenService) Authority(name string) (*fwt.Authority, error) {
	a, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return a.fwt, nil
}

func (s *TokenService) lookup(name string) (*authority, error) {
	a, ok := s.authorities[name]
	if !ok {
		return nil, ErrAuthorityNotFound.WithDetails("%q", name)
	}
	return a, nil
}

func (s *TokenService) log(ctx context.Context) logger.Logger {
	if s.logger != nil {
		l := s.logger
		if reqID := logger.RequestIDFromContext(ctx); reqID != "" {
			l = l.With("request_id", reqID)
		}
		return l.WithContext(ctx)
	}
	return logger.L(ctx)
}

// IssueRequest contains parameters for issuing a token.
type IssueRequest struct {
	Authority string

	// Kind selects the payload kind. Nil infers it from Payload.
	Kind    *fwt.PayloadKind
	Payload any

	// ValidAt is the earliest acceptance instant. Zero means none.
	ValidAt time.Time

	// ExpiresAt takes precedence over TTL. When both are zero the
	// authority's default TTL applies.
	ExpiresAt time.Time
	TTL       time.Duration

	// TokenID is embedded when set. When nil and the authority assigns
	// IDs, a ULID is generated.
	TokenID *string
}

// IssueResponse contains the issued token.
type IssueResponse struct {
	Token       string
	TokenID     *string
	ValidAt     time.Time
	ExpiresAt   time.Time
	Fingerprint string
}

// Issue issues a token.
func (s *TokenService) Issue(ctx context.Context, req *IssueRequest) (*IssueResponse, error) {
	a, err := s.lookup(req.Authority)
	if err != nil {
		return nil, err
	}
	if req.TTL < 0 {
		return nil, ErrInvalidArgument.WithDetails("ttl must not be negative")
	}

	var payload fwt.Payload
	if req.Kind != nil {
		payload, err = fwt.NewPayload(*req.Kind, req.Payload)
	} else {
		payload, err = fwt.InferPayload(req.Payload)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := req.ExpiresAt
	switch {
	case !expiresAt.IsZero():
	case req.TTL > 0:
		expiresAt = now.Add(req.TTL)
	case a.cfg.DefaultTTL > 0:
		expiresAt = now.Add(a.cfg.DefaultTTL)
	}

	if maxTTL := a.cfg.MaxTTL; maxTTL > 0 {
		if expiresAt.IsZero() {
			return nil, ErrLifetimeExceeded.WithDetails("tokens of %q must expire", req.Authority)
		}
		if expiresAt.Sub(now) > maxTTL {
			return nil, ErrLifetimeExceeded.WithDetails("lifetime %s exceeds %s", expiresAt.Sub(now).Truncate(time.Second), maxTTL)
		}
	}

	id := req.TokenID
	if id == nil && a.cfg.AssignIDs {
		generated := token.NewIDAt(now)
		id = &generated
	}

	raw, err := a.fwt.Issue(payload, fwt.IssueOptions{
		ValidAt:   req.ValidAt,
		ExpiresAt: expiresAt,
		TokenID:   id,
	})
	if err != nil {
		return nil, err
	}

	resp := &IssueResponse{
		Token:       fwt.EncodeToken(raw),
		TokenID:     id,
		ValidAt:     req.ValidAt,
		ExpiresAt:   expiresAt,
		Fingerprint: token.Fingerprint(raw),
	}

	if s.metrics != nil {
		s.metrics.ObserveIssue(req.Authority)
	}
	attrs := []any{
		"authority", req.Authority,
		"token_fingerprint", resp.Fingerprint,
		"payload_kind", payload.Kind().String(),
	}
	if id != nil {
		attrs = append(attrs, "token_id", *id)
	}
	if !expiresAt.IsZero() {
		attrs = append(attrs, "expires_at", expiresAt.UTC().Format(time.RFC3339))
	}
	s.log(ctx).Info("token issued", attrs...)

	return resp, nil
}

// ValidateRequest contains parameters for token validation.
type ValidateRequest struct {
	Authority string

	// Token is the text form, with or without the fwt1. prefix.
	Token string
}

// ValidateResponse contains the validated record.
type ValidateResponse struct {
	Record      *fwt.Record
	Fingerprint string
}

// Validate validates a token against the authority's key, clock and type,
// then checks the revocation store when the token carries an ID.
func (s *TokenService) Validate(ctx context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	a, err := s.lookup(req.Authority)
	if err != nil {
		return nil, err
	}

	raw, err := fwt.DecodeToken(req.Token)
	if err != nil {
		s.observeValidate(ctx, req.Authority, "", err)
		return nil, err
	}
	fp := token.Fingerprint(raw)

	now := s.now()
	rec, err := a.fwt.ValidateAt(raw, now)
	if err != nil {
		s.observeValidate(ctx, req.Authority, fp, err)
		return nil, err
	}

	if rec.TokenID != nil && s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, revocationKey(req.Authority, *rec.TokenID), now)
		if err != nil {
			err = ErrStorage.Wrap(err)
			s.observeValidate(ctx, req.Authority, fp, err)
			return nil, err
		}
		if revoked {
			err = ErrTokenRevoked.WithDetails("token id %q", *rec.TokenID)
			s.observeValidate(ctx, req.Authority, fp, err)
			return nil, err
		}
	}

	s.observeValidate(ctx, req.Authority, fp, nil)
	return &ValidateResponse{Record: rec, Fingerprint: fp}, nil
}

func (s *TokenService) observeValidate(ctx context.Context, authority, fingerprint string, err error) {
	result := ValidationResult(err)
	if s.metrics != nil {
		s.metrics.ObserveValidate(authority, result)
	}

	l := s.log(ctx)
	switch result {
	case metric.ResultValid:
		l.Debug("token validated", "authority", authority, "token_fingerprint", fingerprint)
	case metric.ResultInternal:
		l.Error("token validation failed", "authority", authority, "token_fingerprint", fingerprint, "error", err)
	default:
		l.Info("token rejected", "authority", authority, "token_fingerprint", fingerprint, "result", result)
	}
}

// ValidationResult classifies a Validate error as a metric result label.
func ValidationResult(err error) string {
	switch {
	case err == nil:
		return metric.ResultValid
	case errors.Is(err, fwt.ErrExpiredToken):
		return metric.ResultExpired
	case errors.Is(err, fwt.ErrNotYetValid):
		return metric.ResultNotYet
	case errors.Is(err, fwt.ErrTokenTypeMismatch):
		return metric.ResultType
	case errors.Is(err, ErrTokenRevoked):
		return metric.ResultRevoked
	case errors.Is(err, fwt.ErrMalformedToken):
		return metric.ResultMalform
	case errors.Is(err, fwt.ErrInvalidToken):
		return metric.ResultInvalid
	default:
		return metric.ResultInternal
	}
}

// IsRejection reports whether err means the token was presented and
// refused, as opposed to a bad request or a server failure.
func IsRejection(err error) bool {
	return fwt.IsValidationError(err) || errors.Is(err, ErrTokenRevoked)
}

// RevokeRequest contains parameters for revocation.
type RevokeRequest struct {
	Authority string

	// TokenID names the token to revoke. When empty, Token is opened to
	// read its ID.
	TokenID string
	Token   string

	// Until ends the revocation window. When zero it is the token's expiry
	// if Token is given, else now plus the authority's max TTL.
	Until time.Time
}

// RevokeResponse describes the stored revocation.
type RevokeResponse struct {
	TokenID string
	Until   time.Time
}

// Revoke rejects a token ID until the revocation window ends.
func (s *TokenService) Revoke(ctx context.Context, req *RevokeRequest) (*RevokeResponse, error) {
	a, err := s.lookup(req.Authority)
	if err != nil {
		return nil, err
	}
	if s.revocations == nil {
		return nil, ErrRevocationDisabled
	}

	id := req.TokenID
	until := req.Until
	if id == "" {
		if req.Token == "" {
			return nil, ErrInvalidArgument.WithDetails("token_id or token is required")
		}
		raw, err := fwt.DecodeToken(req.Token)
		if err != nil {
			return nil, err
		}
		rec, err := a.fwt.Open(raw)
		if err != nil {
			return nil, err
		}
		if rec.TokenID == nil || *rec.TokenID == "" {
			return nil, ErrInvalidArgument.WithDetails("token carries no token id")
		}
		id = *rec.TokenID
		if until.IsZero() {
			until = rec.ExpiresAt
		}
	}

	now := s.now()
	if until.IsZero() {
		if a.cfg.MaxTTL <= 0 {
			return nil, ErrInvalidArgument.WithDetails("until is required for authorities without max_ttl")
		}
		until = now.Add(a.cfg.MaxTTL)
	}
	if !until.After(now) {
		return nil, ErrInvalidArgument.WithDetails("until must be in the future")
	}

	if err := s.revocations.Revoke(ctx, revocationKey(req.Authority, id), until); err != nil {
		return nil, ErrStorage.Wrap(err)
	}

	if s.metrics != nil {
		s.metrics.ObserveRevoke()
	}
	s.log(ctx).Info("token revoked",
		"authority", req.Authority,
		"token_id", id,
		"until", until.UTC().Format(time.RFC3339),
	)

	return &RevokeResponse{TokenID: id, Until: until}, nil
}

// Token IDs are only unique within an authority.
func revocationKey(authority, id string) string {
	return authority + "/" + id
}
