package httpserver

import (
	"net/http"
	"time"
)

const writeSlack = 15 * time.Second

// New builds the HTTP server. The write deadline leaves room past
// requestTimeout so the timeout middleware can still render its response.
func New(addr string, handler http.Handler, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + writeSlack,
		IdleTimeout:       60 * time.Second,
	}
}
