// Package httpserver provides the HTTP/HTTPS server for fwt-server.
//
// It uses net/http with Go 1.22 method patterns for routing. TLS
// certificates are reloaded from disk when they change, and an optional
// client CA turns on mutual TLS.
package httpserver
