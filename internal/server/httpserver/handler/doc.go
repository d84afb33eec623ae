// Package handler provides HTTP request handlers for fwt-server.
//
// Endpoints:
//
//	GET  /health
//	GET  /metrics
//	GET  /v1/authorities
//	POST /v1/authorities/{name}/tokens
//	POST /v1/authorities/{name}/tokens/validate
//	POST /v1/revocations
//
// Every JSON response uses the Response envelope. A token that fails
// validation is reported as a 200 response with valid=false, since the
// request itself succeeded.
package handler
