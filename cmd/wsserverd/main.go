// wsserverd runs a WebSocket echo server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ushadow/wsserver"
	"github.com/ushadow/wsserver/internal/config"
	"github.com/ushadow/wsserver/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:           "wsserverd",
		Short:         "WebSocket text-frame echo server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				cfg, err = config.Load(configPath)
				if err != nil {
					return err
				}
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides config")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return err
	}

	l := wsserver.NewListener(cfg.Addr, &echoHandler{logger: logger}, &wsserver.Options{
		Logger:           logger,
		ReadBufferSize:   cfg.ReadBufferSize,
		ReadLimit:        rate.Limit(cfg.ReadLimit),
		HandshakeTimeout: time.Duration(cfg.HandshakeTimeout),
	})
	l.Start()
	if l.Addr() == nil {
		return fmt.Errorf("failed to bind %v", cfg.Addr)
	}
	defer l.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	return nil
}

// echoHandler sends every received message back to its sender.
type echoHandler struct {
	logger *slog.Logger
}

func (h *echoHandler) ClientConnected(c *wsserver.Conn) {
	h.logger.Info("connected", slog.String("conn", c.ID()), slog.Any("remote", c.RemoteAddr()))
}

func (h *echoHandler) MessageReceived(c *wsserver.Conn, text string, size int) {
	h.logger.Debug("echo", slog.String("conn", c.ID()), slog.Int("bytes", size))
	c.Send(text)
}

func (h *echoHandler) Disconnected(c *wsserver.Conn) {
	h.logger.Info("disconnected", slog.String("conn", c.ID()))
}
