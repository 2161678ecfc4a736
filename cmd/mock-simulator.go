package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/djordjev/mock-simulator/internal/packages/config"
	"github.com/djordjev/mock-simulator/internal/packages/logging"
	"github.com/djordjev/mock-simulator/internal/packages/metrics"
	"github.com/djordjev/mock-simulator/internal/packages/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var flags config.Flags
	var mountPath string

	cmd := &cobra.Command{
		Use:          "mock-simulator",
		Short:        "Serve mock APIs from a directory of YAML and JSON files",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("mount-path") {
				flags.MountPath = &mountPath
			}

			cfg, err := config.Resolve(flags)
			if err != nil {
				return err
			}

			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&mountPath, "mount-path", "m", config.DefaultMountPath, "path prefix the mocks are served under")
	f.StringVarP(&flags.Host, "host", "h", "", "host to listen on (default "+config.DefaultHost+")")
	f.IntVarP(&flags.Port, "port", "p", 0, fmt.Sprintf("port to listen on (default %d)", config.DefaultPort))
	f.BoolVarP(&flags.UnixSocket, "unix-socket", "u", false, "listen on a unix socket instead of TCP")
	f.StringVarP(&flags.SocketPath, "socket-path", "s", "", "unix socket path (default "+config.DefaultSocket+")")
	f.StringVarP(&flags.MockDir, "mock-dir", "d", "", "directory with mock files (default "+config.DefaultMockDir+")")
	f.StringArrayVarP(&flags.Ignore, "ignore", "i", nil, "glob of mock files to skip, repeatable")
	f.BoolVar(&flags.NoWatch, "no-watch", false, "do not reload when mock files change")
	f.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&flags.LogFormat, "log-format", "", "console or json")
	f.StringVar(&flags.MetricsPath, "metrics-path", "", "serve prometheus metrics on this path")

	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := logging.NewLogger(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics()

	mock, err := server.NewMockMiddleware(ctx, server.Options{
		MockDir:      cfg.MockDir,
		Ignore:       cfg.Ignore,
		MountPath:    cfg.MountPath,
		SkipFSEvents: cfg.SkipFSEvents,
		Logger:       logger,
		Metrics:      m,
	})
	if err != nil {
		logger.Error("unable to start mock middleware", logging.Error(err))
		return err
	}
	defer func() { _ = mock.Close() }()

	listener, address, err := listen(cfg)
	if err != nil {
		logger.Error("unable to open listener", logging.Error(err))
		return err
	}

	srv := &http.Server{
		Handler:           server.NewServer(cfg, mock, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	logger.Info("mock server started",
		logging.String("address", address),
		logging.String("mount_path", cfg.MountPath),
		logging.String("mock_dir", cfg.MockDir),
		logging.Int("routes", mock.Table().Len()),
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", logging.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", logging.Error(err))
		return err
	}

	return nil
}

func listen(cfg config.Config) (net.Listener, string, error) {
	if !cfg.UnixSocket {
		address := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
		listener, err := net.Listen("tcp", address)
		return listener, "http://" + address + cfg.MountPath, err
	}

	if err := os.Remove(cfg.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("unable to remove stale socket %s: %w", cfg.SocketPath, err)
	}

	listener, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return nil, "", err
	}

	if err := os.Chmod(cfg.SocketPath, 0o666); err != nil {
		_ = listener.Close()
		return nil, "", err
	}

	return listener, "unix:" + cfg.SocketPath, nil
}
