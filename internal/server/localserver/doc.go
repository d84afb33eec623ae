// Package localserver serves the local management socket of fwt-server.
//
// The socket is a Unix domain socket created with mode 0600. Requests on it
// skip API key authentication, so access is controlled by file system
// permissions alone. It serves:
//
//   - GET /local/status: version, uptime, authorities and revocation count
//   - PUT /local/log-level: change the log level at runtime
//   - every route of the HTTP API, unauthenticated
//
// The fwt CLI reaches it with a server address of the form unix:///path.
package localserver
