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

	"github.com/spf13/cobra"

	"github.com/danielolaszy/ghm/internal/config"
	"github.com/danielolaszy/ghm/internal/issues"
	"github.com/danielolaszy/ghm/internal/jira"
	"github.com/danielolaszy/ghm/internal/logging"
	"github.com/danielolaszy/ghm/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend",
	Long: `Run the HTTP backend.

Every endpoint except /health requires an "Authorization: Bearer <token>" header.
The token is forwarded to GitHub, so all work is done as the calling user.

If JIRA_URL, JIRA_USERNAME, JIRA_TOKEN and JIRA_PROJECT are all set, every
created issue is also mirrored as a JIRA ticket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := cmd.Flags().GetString("addr")
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.Server.Addr = addr
		}

		srv, err := newServer(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg.Server.Addr, srv.Router())
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides SERVER_ADDR)")
}

// newServer wires the HTTP server from configuration.
func newServer(cfg *config.Config) (*server.Server, error) {
	opts := []server.Option{server.WithCORSOrigin(cfg.Server.CORSOrigin)}

	if cfg.Jira.Enabled() {
		tracker, err := jira.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize jira client: %w", err)
		}
		opts = append(opts, server.WithCreatorOptions(issues.WithTracker(tracker)))
	}

	return server.New(server.DomainClientFactory(cfg.GitHub.Domain), opts...), nil
}

// serve blocks until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("server listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
