package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spigell/resume-analyzer/internal/logger"
	"github.com/spigell/resume-analyzer/internal/web"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the resume analysis form over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080 or :$PORT)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config := loadConfig(logger)

	logger.Info("starting the resume-analyzer", zap.String("version", version))

	pipeline, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("refusing to serve", setupErrorFields(err)...)
	}

	srv := web.NewServer(pipeline, serverConfig(config), logger.Named("web"))
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
}

// serverConfig honours PORT when no listen address was configured.
func serverConfig(config *Config) web.Config {
	cfg := config.Server
	if strings.TrimSpace(cfg.Listen) == "" && strings.TrimSpace(config.Port) != "" {
		cfg.Listen = ":" + strings.TrimPrefix(strings.TrimSpace(config.Port), ":")
	}
	return cfg
}
