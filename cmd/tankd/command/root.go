// Package command provides the tankd root command, which serves the tank
// API, and its sub-commands.
//
//	./tankd [-c config.yaml]                  # start the API server
//	./tankd migrate [-c config.yaml]          # create or update tables
//	./tankd resolve [deposits.json] [--targets]
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"

	"winery-tank-backend/config"
	"winery-tank-backend/internal/api"
	"winery-tank-backend/internal/db"
	"winery-tank-backend/internal/deposits"
	"winery-tank-backend/internal/events"
	"winery-tank-backend/internal/log"
	"winery-tank-backend/internal/notification"
	"winery-tank-backend/internal/store"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "tankd",
	Short: "Tank status backend for the winery app",
	Long: `tankd fetches the deposit list from the winery backend, resolves
every deposit into a tank view (empty, occupied or in use) and tells the
app where each tap on a tank or on the empty tank menu navigates to.
It also keeps in-progress shipments per device, sends web push
notifications when a followed tank becomes available and can publish
tank state changes over MQTT.`,
	SilenceUsage: true,
	RunE:         serve,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(fixConfigPath)
	rootCmd.PersistentFlags().StringVarP(
		&cfgPath, "config", "c", "", "config file path",
	)
}

// fixConfigPath picks the config path from the flag, then CONFIG_PATH,
// then the local development default.
func fixConfigPath() {
	if cfgPath != "" {
		return
	}
	var found bool
	if cfgPath, found = os.LookupEnv("CONFIG_PATH"); !found {
		cfgPath = "./config/config.yaml"
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", cfgPath, err)
	}
	log.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	log.Info(ctx, "configuration loaded", slog.String("path", cfgPath))

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	appStore := store.NewGormStore(gormDB)
	log.Info(ctx, "data store initialized")

	var webpushOptions *webpush.Options
	var workerPool *notification.WorkerPool
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		log.Warn(ctx, "VAPID keys are not configured, availability notifications are disabled")
	} else {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		workerPool.Start(ctx)
	}

	publisher, err := events.NewPublisher(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("failed to set up tank event publisher: %w", err)
	}
	defer publisher.Close()

	tanks := deposits.NewService(cfg, deposits.NewClient(&cfg.Upstream), workerPool, publisher)
	go tanks.Run(ctx)

	router := api.NewRouter(cfg.Server, tanks, appStore, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "HTTP server starting", slog.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info(ctx, "shutdown signal received, stopping services")
	case err := <-serveErr:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	log.Info(shutdownCtx, "server gracefully stopped")
	return nil
}
