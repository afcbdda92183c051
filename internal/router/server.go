package router

import "net/http"

// NewServer wraps handler in an http.Server. onShutdown runs as soon as
// Shutdown starts, so long-lived streams can be ended before the server waits
// for idle connections.
func NewServer(addr string, handler http.Handler, onShutdown ...func()) *http.Server {
	srv := &http.Server{Addr: addr, Handler: handler}
	for _, fn := range onShutdown {
		srv.RegisterOnShutdown(fn)
	}
	return srv
}
