package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fahmycader/metermate-backend/internal/api"
	"github.com/fahmycader/metermate-backend/internal/auth"
	"github.com/fahmycader/metermate-backend/internal/events"
	"github.com/fahmycader/metermate-backend/internal/mailer"
	"github.com/fahmycader/metermate-backend/internal/territory"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the job-management API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Auth.JWTSecret == "" {
			return eris.New("auth: jwt_secret is required (METERMATE_AUTH_JWT_SECRET)")
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "serve: migrate")
		}

		var territoryIdx *territory.Index
		if cfg.Territory.ShapefilePath != "" {
			territoryIdx, err = territory.Load(cfg.Territory.ShapefilePath)
			if err != nil {
				return eris.Wrap(err, "serve: load territory")
			}
		}

		tokens := auth.NewTokens(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
		hub := events.NewHub()
		srv := api.NewServer(cfg, st, tokens, mailer.FromConfig(cfg.SMTP), hub, territoryIdx)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("driver", cfg.Store.Driver))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
