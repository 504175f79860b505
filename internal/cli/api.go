package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/stash4me/internal/auth"
	"github.com/ibeckermayer/stash4me/internal/config"
	"github.com/ibeckermayer/stash4me/internal/mcpserver"
	"github.com/ibeckermayer/stash4me/internal/reddit"
	"github.com/ibeckermayer/stash4me/internal/types"
	"github.com/ibeckermayer/stash4me/internal/x"
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize x",
	Short: "Authorize the formal X API via OAuth2",
	Long: "Runs the OAuth2 PKCE flow for the X API v2: prints an authorization URL, " +
		"waits for the redirect on the configured callback address, and stores the " +
		"resulting tokens. Requires X_CLIENT_ID (and optionally X_CLIENT_SECRET).",
	Args: cobra.ExactArgs(1),
	RunE: authorizeAction,
}

var (
	whoamiPlatform string

	whoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated API user",
		RunE:  whoamiAction,
	}
)

func init() {
	whoamiCmd.Flags().StringVar(&whoamiPlatform, "platform", "reddit", "platform to query: reddit or x")
	rootCmd.AddCommand(authorizeCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func xOAuthHandler(cfg *config.Config) (*auth.OAuthHandler, error) {
	if cfg.X.ClientID == "" {
		return nil, fmt.Errorf("x api client not configured (set X_CLIENT_ID)")
	}
	tokenPath, err := config.TokenFilePath("x")
	if err != nil {
		return nil, err
	}
	oauthCfg := x.OAuthConfig(cfg.X.ClientID, cfg.X.ClientSecret, cfg.X.RedirectURI)
	return auth.NewOAuthHandler(oauthCfg, auth.NewTokenFile(tokenPath)), nil
}

type oauthCallback struct {
	code  string
	state string
	err   string
}

func authorizeAction(cmd *cobra.Command, args []string) error {
	if args[0] != "x" && args[0] != "twitter" {
		return fmt.Errorf("only the x platform uses OAuth authorization")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	handler, err := xOAuthHandler(cfg)
	if err != nil {
		return err
	}

	redirect, err := url.Parse(cfg.X.RedirectURI)
	if err != nil {
		return fmt.Errorf("invalid redirect URI %q: %w", cfg.X.RedirectURI, err)
	}

	authURL, _ := handler.AuthorizationURL()
	fmt.Printf("Open this URL in your browser and approve access:\n\n  %s\n\n", authURL)

	cb, err := waitForCallback(cmd.Context(), redirect)
	if err != nil {
		return err
	}
	if cb.err != "" {
		return fmt.Errorf("authorization denied: %s", cb.err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := handler.Exchange(ctx, cb.code, cb.state); err != nil {
		return err
	}

	fmt.Println("authorization complete, tokens stored")
	return nil
}

// waitForCallback serves the OAuth redirect endpoint until one callback
// arrives or five minutes pass.
func waitForCallback(ctx context.Context, redirect *url.URL) (oauthCallback, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	results := make(chan oauthCallback, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		select {
		case results <- oauthCallback{code: q.Get("code"), state: q.Get("state"), err: q.Get("error")}:
		default:
		}
		fmt.Fprintln(w, "Authorization received, you can close this window.")
	})

	srv := &http.Server{Addr: redirect.Host, Handler: mux}
	errs := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case cb := <-results:
		return cb, nil
	case err := <-errs:
		return oauthCallback{}, fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return oauthCallback{}, fmt.Errorf("timed out waiting for the OAuth callback")
	}
}

func whoamiAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var user any
	switch whoamiPlatform {
	case "reddit":
		client, err := redditAPIClient(cfg)
		if err != nil {
			return err
		}
		user, err = client.GetMe(ctx)
		if err != nil {
			return err
		}
	case "x", "twitter":
		client, err := xAPIClient(cfg)
		if err != nil {
			return err
		}
		user, err = client.GetMe(ctx)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown platform %q (want reddit or x)", whoamiPlatform)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(user)
}

func redditAPIClient(cfg *config.Config) (*reddit.APIClient, error) {
	if cfg.Reddit.ClientID == "" || cfg.Reddit.ClientSecret == "" {
		return nil, fmt.Errorf("reddit api client not configured (set REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET)")
	}
	return reddit.NewAPIClient(cfg.Reddit.ClientID, cfg.Reddit.ClientSecret, cfg.Reddit.Username, cfg.Reddit.Password, log)
}

func xAPIClient(cfg *config.Config) (*x.APIClient, error) {
	handler, err := xOAuthHandler(cfg)
	if err != nil {
		return nil, err
	}
	return x.NewAPIClient(handler, log), nil
}

// apiFetcherFor builds collection functions over the formal APIs instead of
// the hybrid browser path.
func apiFetcherFor(cfg *config.Config, platform string) (mcpserver.Fetcher, types.Platform, error) {
	switch platform {
	case "reddit":
		client, err := redditAPIClient(cfg)
		if err != nil {
			return nil, "", err
		}
		fetch := func(ctx context.Context, limit int) ([]types.SavedPost, error) {
			return client.GetSaved(ctx, limit, reddit.FilterNone), nil
		}
		return fetch, types.PlatformReddit, nil
	case "x", "twitter":
		client, err := xAPIClient(cfg)
		if err != nil {
			return nil, "", err
		}
		fetch := func(ctx context.Context, limit int) ([]types.SavedPost, error) {
			return client.GetBookmarks(ctx, limit), nil
		}
		return fetch, types.PlatformX, nil
	default:
		return nil, "", fmt.Errorf("unknown platform %q (want reddit or x)", platform)
	}
}
