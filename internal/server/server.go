package server

import (
	"net/http"

	"github.com/xueqianLu/dscgateway/internal/config"
)

// NewServer creates and configures an HTTP server. The write timeout has to
// cover a full transaction confirmation.
func NewServer(handler http.Handler, cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
