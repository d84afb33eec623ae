// Package connection is the fwt CLI's HTTP client for fwt-server.
//
// It speaks the server's JSON envelope: successful responses decode into
// the handler package's response types, and error envelopes come back as
// *APIError.
package connection
