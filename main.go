package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"firetrack-site/database"
	"firetrack-site/internal/domain/plans"
	"firetrack-site/internal/pricing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "firetrack",
		Short:         "FireTrack onboarding and billing backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update database tables",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate()
			},
		},
		&cobra.Command{
			Use:   "sync-prices",
			Short: "Copy active recurring Stripe prices into price_mappings",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSyncPrices(cmd.Context())
			},
		},
	)
	return root
}

func runServe(parent context.Context) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := database.Migrate(a.db); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("http server listening", zap.String("addr", srv.Addr), zap.String("stripe_mode", a.cfg.StripeMode()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func runMigrate() error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := database.Migrate(a.db); err != nil {
		return err
	}
	a.log.Info("migrations applied")
	return nil
}

func runSyncPrices(ctx context.Context) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.gateway == nil {
		return errors.New("stripe secret key not configured")
	}
	if err := database.Migrate(a.db); err != nil {
		return err
	}
	res, err := pricing.Sync(ctx, a.db, a.gateway, plans.Default(), a.cfg.StripeMode(), a.log)
	if err != nil {
		return err
	}
	fmt.Printf("upserted %d price mappings, skipped %d\n", res.Upserted, len(res.Skipped))
	return nil
}
