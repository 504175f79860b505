package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/stash4me/internal/config"
	"github.com/ibeckermayer/stash4me/internal/reddit"
	"github.com/ibeckermayer/stash4me/internal/search"
	"github.com/ibeckermayer/stash4me/internal/types"
)

var (
	searchPlatform  string
	searchQueries   []string
	searchAny       bool
	searchThreshold int
	searchSubreddit string
	searchLimit     int
	searchViaAPI    bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Collect a platform's feed and search it",
	Example: `  stash4me search -q golang -q generics
  stash4me search --platform x -q "rust async" --threshold 3
  stash4me search -q python --subreddit learnpython --any`,
	RunE: searchAction,
}

func init() {
	searchCmd.Flags().StringVar(&searchPlatform, "platform", "reddit", "platform to search: reddit or x")
	searchCmd.Flags().StringArrayVarP(&searchQueries, "query", "q", nil, "search term (repeatable)")
	searchCmd.Flags().BoolVar(&searchAny, "any", false, "match any term instead of all")
	searchCmd.Flags().IntVar(&searchThreshold, "threshold", -1, "typo tolerance 0-10 (-1 = config default)")
	searchCmd.Flags().StringVar(&searchSubreddit, "subreddit", "", "restrict reddit results to one subreddit")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results (0 = all)")
	searchCmd.Flags().BoolVar(&searchViaAPI, "api", false, "use the platform's formal API instead of the browser path")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}

func searchAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pick := fetcherFor
	if searchViaAPI {
		pick = apiFetcherFor
	}
	fetch, platform, err := pick(cfg, searchPlatform)
	if err != nil {
		return err
	}

	threshold := cfg.Search.FuzzyThreshold
	if searchThreshold >= 0 {
		threshold = searchThreshold
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	posts, err := fetch(ctx, 0)
	if err != nil {
		return err
	}

	var results []types.SavedPost
	if platform == types.PlatformReddit {
		results = reddit.SearchSaved(posts, searchQueries, !searchAny, threshold, searchLimit, searchSubreddit)
	} else {
		results = search.Filter(posts, searchQueries, !searchAny, threshold, searchLimit)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
