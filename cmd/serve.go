package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	qhttp "potability/http"
	"potability/logging"
	"potability/view"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload page and prediction API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load config
		c, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			c.Server.Port = servePort
			if err := c.Validate(); err != nil {
				return err
			}
		}

		logger, err := logging.New(c.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Sync()

		// 2. Load artifacts; the service never starts without them
		p, artifacts, err := loadPipeline(c)
		if err != nil {
			logger.Error("failed to load artifacts", zap.Error(err))
			return err
		}
		defer artifacts.Close()

		summary := artifacts.Summary()
		logger.Info("artifacts loaded",
			zap.Strings("features", summary.Features),
			zap.String("imputer", summary.Imputer),
			zap.String("scaler", summary.Scaler),
			zap.String("classifier", summary.Classifier))

		if c.Artifacts.Watch {
			if err := artifacts.Watch(logger); err != nil {
				logger.Warn("artifact watch disabled", zap.Error(err))
			}
		}

		// 3. Start HTTP server
		presenter := view.NewHTMLPresenter(c.UI.Title, c.UI.Description)
		handlers := qhttp.NewHandlers(p, presenter, logger, qhttp.HandlerOptions{
			MaxRows: c.Pipeline.MaxRows,
			Summary: &summary,
		})
		server := qhttp.NewServer(qhttp.ServerConfigFrom(c.Server), handlers, logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		// 4. Handle graceful shutdown
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-errCh:
			return err
		case sig := <-quit:
			logger.Info("shutting down", zap.String("signal", sig.String()))
		}

		if err := server.Stop(); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
			return err
		}
		logger.Info("exiting")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
