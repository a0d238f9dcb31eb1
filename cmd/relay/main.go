package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/devricklin/echo-relay/internal/biz"
	"github.com/devricklin/echo-relay/internal/biz/domain"
	"github.com/devricklin/echo-relay/internal/biz/usecase"
	"github.com/devricklin/echo-relay/internal/conf"
	"github.com/devricklin/echo-relay/internal/data"
	"github.com/devricklin/echo-relay/internal/infra/openai"
	"github.com/devricklin/echo-relay/internal/mcp"
	"github.com/devricklin/echo-relay/internal/server"
	"github.com/devricklin/echo-relay/internal/service"
)

var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:           "relay",
		Short:         "Topic-filtered chat relay dashboard",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig loads .env and the environment, and installs the default logger
func loadConfig() (*conf.Config, *slog.Logger, error) {
	envErr := godotenv.Load()

	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	}
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server and processing loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cfg, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides RELAY_ADDR)")
	return cmd
}

func serve(cfg *conf.Config, logger *slog.Logger) error {
	// Initialize repository layer
	repos, err := data.NewRepositories(cfg, logger)
	if err != nil {
		return fmt.Errorf("create repositories: %w", err)
	}
	defer repos.Close()

	// Initialize usecase layer
	ucs := biz.NewUsecases(repos.Classifier, repos.Samples, logger)
	if !ucs.Classifier.IsConfigured() {
		logger.Warn("OPENAI_API_KEY not set, every message will be blocked")
	}

	// Initialize service layer
	hub := service.NewEventHub(64)
	defer hub.Close()

	dashboard := service.NewDashboard(ucs.Classifier, ucs.Samples, repos.Feed, hub, service.DashboardConfig{
		TickInterval: cfg.Dashboard.TickInterval,
		ConnectDelay: cfg.Dashboard.ConnectDelay,
		DefaultTopic: cfg.Dashboard.DefaultTopic,
		OperatorName: cfg.Dashboard.OperatorName,
		FeedLimit:    cfg.Dashboard.FeedLimit,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dashboard.Start(ctx)
	defer dashboard.Stop()

	srv := server.NewServer(cfg.Server.Addr, dashboard, ucs.Classifier, hub, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	logger.Info("Relay dashboard running", "url", "http://"+cfg.Server.Addr, "model", cfg.LLM.Model)

	// Start returns nil after a clean shutdown, so only a listen failure ends up here
	if err := g.Wait(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func classifyCmd() *cobra.Command {
	var topic string

	cmd := &cobra.Command{
		Use:   "classify [message]",
		Short: "Classify one message against a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if topic == "" {
				topic = cfg.Dashboard.DefaultTopic
			}

			var client *openai.Client
			if cfg.ClassifierEnabled() {
				client = openai.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, logger)
			}
			classifierRepo, err := data.NewClassifierRepo(client, cfg.Relay.Classifier, cfg.LLM.ClassifyTimeout())
			if err != nil {
				return err
			}
			uc := usecase.NewClassifierUsecase(classifierRepo, logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			message := strings.Join(args, " ")
			result, err := uc.Classify(ctx, message, topic)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %s\n", domain.DecisionFor(result.IsRelevant), result.Reason)
			return nil
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "group topic (defaults to DEFAULT_TOPIC)")
	return cmd
}

func mcpCmd() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve relay tools over MCP stdio against a running dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if apiURL == "" {
				apiURL = cfg.Server.APIURL
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("Relay MCP server", "api", apiURL)
			srv := mcp.NewServer(mcp.NewClient(apiURL), version, logger)
			if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "", "dashboard API base URL (overrides RELAY_API_URL)")
	return cmd
}
