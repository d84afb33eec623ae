// Package service provides the token service for fwt-server.
//
// TokenService holds one fwt.Authority per configured authority name and
// adds the policy the token format itself does not carry: default and
// maximum lifetimes, generated token IDs, and revocation. It defines the
// storage interface it depends on, so any revocation backend can be
// injected.
//
// TokenService is safe for concurrent use.
package service
