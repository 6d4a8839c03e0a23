// Package httpserver builds the ledger's HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with the timeouts the ledger endpoints need.
// Handler-level timeouts are shorter, so these only bound misbehaving peers.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
