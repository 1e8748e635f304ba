package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/api"
	"github.com/pable/go-nfl-spread/pkg/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over HTTP",
	Long: `Starts an HTTP server with:
  GET  /healthz
  GET  /v1/teams
  GET  /v1/teams/{team}/averages?year=
  GET  /v1/predict?home=&away=&year=&week=
  POST /v1/predict           {"home_team":"KC","away_team":"DET"}
  POST /v1/reload            load the newest table and predictor
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: config serve_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := logger.Named("api")

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	srv := api.NewServer(e.pipe, nil, log, metricsMgr)
	if err := srv.Reload(ctx); err != nil {
		log.Warn(ctx, "starting without a model, predictions return 503 until /v1/reload succeeds", logger.Error(err))
	}

	addr := cfg.ServeAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", logger.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
