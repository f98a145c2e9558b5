// cmd/serve.go
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/signupd/api/schemas"
	"github.com/xkilldash9x/signupd/internal/browser"
	"github.com/xkilldash9x/signupd/internal/creds"
	"github.com/xkilldash9x/signupd/internal/heuristics"
	"github.com/xkilldash9x/signupd/internal/observability"
	"github.com/xkilldash9x/signupd/internal/orchestrator"
	"github.com/xkilldash9x/signupd/internal/server"
	"github.com/xkilldash9x/signupd/internal/signup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the signup automation service.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires the full service graph and blocks until the context is
// canceled or the HTTP server fails.
func runServe(ctx context.Context) error {
	logger := observability.GetLogger()
	defer observability.Sync()

	rules := heuristics.Default().Merge(
		cfg.Heuristics.ProtectionHosts,
		cfg.Heuristics.CaptchaKeywords,
		cfg.Heuristics.SuccessMarkers,
	)

	manager := browser.NewManager(cfg.Browser, cfg.Storage.Dir, logger)
	registry := browser.NewRegistry(logger)
	driver := signup.NewDriver(manager, registry, rules, cfg.Browser, cfg.Signup, logger)

	factory := func(curp string) schemas.Credentials {
		return schemas.Credentials{
			Email:    creds.EmailFromCURP(curp, cfg.Signup.EmailDomain),
			Password: creds.NewPassword(cfg.Signup.PasswordLength),
		}
	}

	orch := orchestrator.New(cfg.Engine, cfg.Storage.Dir, driver, registry, factory, logger)
	handlers := server.NewHandlers(logger, orch)
	srv := server.New(cfg.Server, handlers, cfg.Storage.Dir, logger)

	orch.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	err := g.Wait()

	// Shutdown order matters: stop accepting work, drain the pool, then tear
	// down sessions and the driver process they depend on.
	orch.Stop()
	registry.ReleaseAll()
	if serr := manager.Shutdown(); serr != nil {
		logger.Warn("Browser manager shutdown error.", zap.Error(serr))
	}

	logger.Info("Signupd stopped.")
	return err
}
