package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"directory-sync/core/loader"
	"directory-sync/core/logger"
	"directory-sync/core/middleware/auth"
	"directory-sync/core/middleware/rayid"
	"directory-sync/feature/users"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP sync trigger",
	Long:  `Starts the HTTP server exposing the sync endpoints of all enabled features.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()
		logg := app.logger
		cfg := app.cfg

		if err := app.service.Verify(cmd.Context()); err != nil {
			logg.Warn("Layout check failed, passes may fail", zap.Error(err))
		}

		srv := newServer(app)

		// Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(users.NewFeature(app.service, logg))

		loaded, err := mgr.LoadAll(srv)
		if err != nil {
			return err
		}
		logg.Info("Features loaded", zap.Strings("features", loaded))

		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := srv.Listen(cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		return srv.Shutdown()
	},
}

// newServer creates the Fiber app with the global middleware stack.
func newServer(app *application) *fiber.App {
	logg := app.logger
	srv := fiber.New(fiber.Config{
		DisableStartupMessage: true, // We will log our own startup message
		ReadTimeout:           app.cfg.Server.ReadTimeout(),
		WriteTimeout:          app.cfg.Server.WriteTimeout(),
	})

	// 1. RayID (Must be first to trace everything)
	srv.Use(rayid.New())

	// 2. Request logging
	srv.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	// 3. Auth (everything but the health check)
	if !app.cfg.Server.AuthEnabled() {
		logg.Warn("server.api_key is empty, sync endpoints are unauthenticated")
	}
	srv.Use(auth.New(auth.Config{ApiKey: app.cfg.Server.ApiKey, PublicPaths: []string{"/health"}}))

	srv.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	return srv
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
