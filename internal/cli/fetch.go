package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/stash4me/internal/config"
)

var (
	fetchPlatform string
	fetchLimit    int
	fetchViaAPI   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Collect a platform's feed and print it as JSON",
	RunE:  fetchAction,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchPlatform, "platform", "reddit", "platform to collect: reddit or x")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 0, "maximum items to collect (0 = all)")
	fetchCmd.Flags().BoolVar(&fetchViaAPI, "api", false, "use the platform's formal API instead of the browser path")
	rootCmd.AddCommand(fetchCmd)
}

func fetchAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pick := fetcherFor
	if fetchViaAPI {
		pick = apiFetcherFor
	}
	fetch, _, err := pick(cfg, fetchPlatform)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	posts, err := fetch(ctx, fetchLimit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(posts)
}
