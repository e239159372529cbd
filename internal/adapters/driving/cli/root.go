// Package cli implements the loom command line: the gateway server, course
// management, ingestion, the inbox watcher and the MCP server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/loom-gateway/internal/app"
	"github.com/custodia-labs/loom-gateway/internal/config"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driving"
	"github.com/custodia-labs/loom-gateway/internal/logger"
)

// version is set at build time.
var version = "dev"

var (
	configFile string
	verbose    bool
)

// Services used by commands. They are built from configuration before a
// command runs unless already set.
var (
	appConfig        *config.Config
	ingestService    driving.IngestService
	chatService      driving.ChatService
	catalogService   driving.CatalogService
	retrievalService driving.RetrievalService
	closeApp         func() error
)

// skipAppAnnotation marks commands that run without the service stack.
const skipAppAnnotation = "loom/skip-app"

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Course-aware, OpenAI-compatible chat gateway",
	Long: `Loom answers OpenAI chat completion requests with context retrieved
from the course material you ingest.

Ingest PDFs per course, then point any OpenAI client at the gateway and
pick a course model such as "loom:CS101" or "gpt-4o-mini@CS101".`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: teardownApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./loom.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setupApp(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if skipsApp(cmd) || ingestService != nil {
		return nil
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !verbose {
		level, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("starting loom: %w", err)
	}

	appConfig = cfg
	ingestService = a.Ingest
	chatService = a.Chat
	catalogService = a.Catalog
	retrievalService = a.Retrieval
	closeApp = a.Close
	return nil
}

func teardownApp(_ *cobra.Command, _ []string) error {
	if closeApp == nil {
		return nil
	}
	err := closeApp()
	closeApp = nil
	appConfig = nil
	ingestService = nil
	chatService = nil
	catalogService = nil
	retrievalService = nil
	return err
}

func skipsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipAppAnnotation] == "true" {
			return true
		}
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

var errServicesNotConfigured = errors.New("services not configured")

func skipApp() map[string]string {
	return map[string]string{skipAppAnnotation: "true"}
}
