package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abhisek/studypal/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			a.cfg.Listen = listen
		}
		if a.cfg.LogMode == "production" || a.cfg.LogMode == "prod" {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := server.New(a.svc, a, server.Config{CORSOrigins: a.cfg.CORSOrigins}, a.log)
		httpSrv := &http.Server{
			Addr:              a.cfg.Listen,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.log.Info("listening", "addr", a.cfg.Listen)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			a.log.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(sctx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Listen address (overrides config and STUDYPAL_LISTEN)")
}
