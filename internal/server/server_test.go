package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xueqianLu/dscgateway/internal/config"
)

func TestNewServer(t *testing.T) {
	h := http.NewServeMux()
	srv := NewServer(h, config.ServerConfig{
		Port:         "9000",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  2 * time.Minute,
	})
	assert.Equal(t, ":9000", srv.Addr)
	assert.Equal(t, time.Minute, srv.WriteTimeout)
	assert.Equal(t, 2*time.Minute, srv.IdleTimeout)
}
