// Package shutdown provides graceful shutdown for the fwt server.
//
// Hooks registered with OnShutdown run in reverse registration order once
// the process receives SIGINT or SIGTERM, or the context passed to Wait is
// cancelled. All hooks share one deadline.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown("http", srv.Shutdown)
//	return h.Wait(ctx)
package shutdown
