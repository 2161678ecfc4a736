package server

import (
	"net/http"

	"github.com/djordjev/mock-simulator/internal/packages/config"
	"github.com/djordjev/mock-simulator/internal/packages/metrics"
)

// NewServer mounts the mock middleware under the configured mount path. Any
// request that no mock route claims ends with 404.
func NewServer(cfg config.Config, mock *Mock, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte("PONG"))
	})

	if cfg.MetricsPath != "" && m != nil {
		mux.Handle("GET "+cfg.MetricsPath, m.Handler())
	}

	mocks := mock.Middleware(http.NotFoundHandler())

	if cfg.MountPath == "" {
		mux.Handle("/", mocks)
	} else {
		mounted := http.StripPrefix(cfg.MountPath, mocks)
		mux.Handle(cfg.MountPath, mounted)
		mux.Handle(cfg.MountPath+"/", mounted)
	}

	return mux
}
