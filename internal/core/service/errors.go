package service

import "github.com/yndnr/fwt-go/pkg/fwt"

// Service errors. They share the fwt error type, so errors.Is matches by
// code and handlers map every error the same way.
var (
	// ErrInvalidArgument indicates a malformed request.
	ErrInvalidArgument = &fwt.Error{Code: "FWT-ARG-4000", Message: "invalid argument"}

	// ErrLifetimeExceeded indicates the requested lifetime exceeds the
	// authority's maximum.
	ErrLifetimeExceeded = &fwt.Error{Code: "FWT-ARG-4001", Message: "token lifetime exceeds maximum"}

	// ErrTokenRevoked indicates the token ID has been revoked.
	ErrTokenRevoked = &fwt.Error{Code: "FWT-TOKN-4014", Message: "token revoked"}

	// ErrAuthorityNotFound indicates no authority has the requested name.
	ErrAuthorityNotFound = &fwt.Error{Code: "FWT-AUTH-4040", Message: "authority not found"}

	// ErrRevocationDisabled indicates the service has no revocation store.
	ErrRevocationDisabled = &fwt.Error{Code: "FWT-SYS-5010", Message: "revocation is not configured"}

	// ErrStorage indicates the revocation store failed.
	ErrStorage = &fwt.Error{Code: "FWT-SYS-5000", Message: "storage error"}
)
