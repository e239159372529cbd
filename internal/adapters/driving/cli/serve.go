package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/loom-gateway/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/loom-gateway/internal/adapters/driving/watcher"
	"github.com/custodia-labs/loom-gateway/internal/ratelimit"
)

var (
	serveAddr  string
	serveWatch string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Start the OpenAI-compatible HTTP gateway.

Routes:
  GET  /healthz
  GET  /metrics
  GET  /v1/models
  POST /v1/ingest
  POST /v1/chat/completions
  POST /v1/{course_id}/chat/completions
  GET  /v1/courses[/{course_id}[/documents]]
  PUT  /v1/courses/{course_id}

With --watch, PDFs dropped into <dir>/<course_id>/ are ingested while the
server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8000)")
	serveCmd.Flags().StringVar(&serveWatch, "watch", "", "inbox directory to watch for uploads")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if appConfig == nil || ingestService == nil || chatService == nil || catalogService == nil {
		return errServicesNotConfigured
	}

	cfg := appConfig.Server
	addr := cfg.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv, err := httpapi.New(httpapi.Config{
		Addr:            addr,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		Metrics:         cfg.Metrics,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: appConfig.RateLimit.RequestsPerSecond,
			BurstSize:         appConfig.RateLimit.Burst,
		},
	}, httpapi.Services{
		Ingest:  ingestService,
		Chat:    chatService,
		Catalog: catalogService,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	if serveWatch != "" {
		w := watcher.New(serveWatch, ingestService)
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Loom gateway listening on %s\n", addr)
	return g.Wait()
}
