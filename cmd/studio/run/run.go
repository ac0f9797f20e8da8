package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cozy-creator/influencer-studio/internal/app"
	"github.com/cozy-creator/influencer-studio/internal/config"
	"github.com/cozy-creator/influencer-studio/internal/server"
)

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Start the studio server and the shots processor",
	RunE:  runApp,
}

func init() {
	flags := Cmd.Flags()

	flags.Int("port", 8881, "Port to run the server on")
	flags.String("host", "localhost", "Host to run the server on")
	flags.String("environment", config.EnvDevelopment, "Environment configuration")
	flags.Bool("disable-auth", false, "Disable authentication when receiving requests")
	flags.String("filesystem-type", config.FilesystemLocal, "Filesystem type: 'local' or 's3'")
	flags.String("public-dir", "", "Path where static files should be served from")
	flags.String("public-url", "", "Externally reachable base URL, used for webhooks and local file links")

	flags.String("db-driver", config.DriverSQLite, "Database driver: sqlite, pg or libsql")
	flags.String("db-dsn", "file:./data/studio.db", "Database DSN (Connection URL or Path)")
	flags.String("pulsar-url", "", "URL of the pulsar broker. Example: pulsar+ssl://my-cluster.streamnative.cloud:6651")

	viper.BindPFlag("port", flags.Lookup("port"))
	viper.BindPFlag("host", flags.Lookup("host"))
	viper.BindPFlag("environment", flags.Lookup("environment"))
	viper.BindPFlag("disable_auth", flags.Lookup("disable-auth"))
	viper.BindPFlag("filesystem_type", flags.Lookup("filesystem-type"))
	viper.BindPFlag("public_dir", flags.Lookup("public-dir"))
	viper.BindPFlag("public_url", flags.Lookup("public-url"))
	viper.BindPFlag("db.driver", flags.Lookup("db-driver"))
	viper.BindPFlag("db.dsn", flags.Lookup("db-dsn"))
	viper.BindPFlag("pulsar.url", flags.Lookup("pulsar-url"))
}

func runApp(_ *cobra.Command, _ []string) error {
	cfg := config.MustGetConfig()

	a, err := app.NewApp(cfg,
		app.WithDBConnection(),
		app.WithMQ(),
		app.WithFileUploader(),
		app.WithAuth(),
		app.WithServices(),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}
	srv.SetupRoutes(a)

	ctx, stop := signal.NotifyContext(a.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	errc := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		a.Logger.Info("studio server started", zap.String("addr", srv.Addr()))
		if err := srv.Start(); err != nil {
			errc <- fmt.Errorf("server: %w", err)
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.Orchestrator.RunShotProcessor(ctx, a.MQ(), cfg.Pulsar.ShotsTopic, cfg.Jobs.ShotWorkers); err != nil {
			errc <- fmt.Errorf("shots processor: %w", err)
		}
	}()

	var runErr error
	select {
	case runErr = <-errc:
	case <-ctx.Done():
		a.Logger.Info("shutting down")
	}

	stop()
	if err := srv.Stop(context.Background()); err != nil {
		a.Logger.Warn("server shutdown failed", zap.Error(err))
	}
	if err := a.MQ().CloseTopic(cfg.Pulsar.ShotsTopic); err != nil {
		a.Logger.Debug("failed to close shots topic", zap.Error(err))
	}
	wg.Wait()

	return runErr
}
