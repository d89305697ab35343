package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clara-keeper/cmd/root"
	"clara-keeper/controllers"
	"clara-keeper/internal/config"
	"clara-keeper/internal/env"
	"clara-keeper/internal/logger"
	"clara-keeper/internal/middleware"
	"clara-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var optAddress string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the keeper HTTP daemon",
	Long:  `Runs the HTTP API, the background health monitor and the Prometheus /metrics endpoint until interrupted`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startServer(context.Background()); err != nil {
			logger.Fatalf("server exited: %v", err)
		}
	},
}

/**
 * Start the keeper daemon
 * @param {context.Context} ctx - Root context, canceled on SIGINT/SIGTERM
 * @returns {error} Listener failure; nil on clean shutdown
 * @description
 * - Wires the keeper singletons and registers all API controllers
 * - Watches the per-service config files and rechecks on external edits
 * - Serves Prometheus metrics on /metrics
 * - Shuts the HTTP listener down gracefully with a 5s drain window
 */
func startServer(ctx context.Context) error {
	env.Daemon = true

	if config.Config.Server.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.MetricsMiddleware())

	keeper := services.GetKeeper()
	controllers.NewAPIController(keeper).RegisterRoutes(router)
	controllers.NewServiceController(keeper).RegisterRoutes(router)
	controllers.NewModeController(keeper).RegisterRoutes(router)
	controllers.NewRemoteController(keeper).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	keeper.Monitor.Start()
	defer keeper.Monitor.Stop()

	// External edits to the config files (e.g. from the desktop app) must be
	// picked up without a restart.
	if err := keeper.Store.Watch(func(serviceID string) {
		logger.Infof("Config change detected for %s, rechecking", serviceID)
		keeper.Store.Reload(serviceID)
		keeper.Monitor.Recheck(serviceID)
	}); err != nil {
		logger.Warnf("Config watch unavailable: %v", err)
	}
	defer keeper.Store.Close()

	if addr := config.Config.Metrics.Pushgateway; addr != "" {
		go pushMetricsLoop(ctx, addr)
	}

	address := optAddress
	if address == "" {
		address = config.Config.Server.Address
	}
	srv := &http.Server{Addr: address, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Keeper listening on %s", address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Infof("Shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// pushMetricsLoop mirrors /metrics to a Pushgateway for hosts where the
// daemon cannot be scraped directly.
func pushMetricsLoop(ctx context.Context, addr string) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := services.PushMetrics(addr); err != nil {
				logger.Warnf("Metrics push to %s failed: %v", addr, err)
			}
		}
	}
}

func init() {
	root.RootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVarP(&optAddress, "address", "a", "", "listen address, overrides config (e.g. :5880)")
	serverCmd.Example = `  clara-keeper server
  clara-keeper server --address :5880`
}
