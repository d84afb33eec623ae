// Package tlsroots builds the TLS configuration of the HTTP service.
//
// CertReloader serves the certificate from disk and reloads it when the
// certificate or key file changes, so rotating a certificate does not need
// a restart. LoadPool reads PEM bundles into a CertPool for verifying
// client certificates.
package tlsroots
