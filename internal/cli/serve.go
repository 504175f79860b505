package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/stash4me/internal/cache"
	"github.com/ibeckermayer/stash4me/internal/config"
	"github.com/ibeckermayer/stash4me/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: "Serves the collected feeds to an MCP host (e.g. Claude Desktop) over " +
		"standard input and output. The first tool call per platform collects the " +
		"feed; later calls are served from an in-memory cache.",
	RunE: serveAction,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serveAction(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := cache.New()
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = store.Close() }()

	srv := mcpserver.New(cfg, store, redditFetcher(cfg), xFetcher(cfg), log)
	return srv.Serve()
}
