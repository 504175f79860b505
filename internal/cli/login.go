package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/stash4me/internal/auth"
	"github.com/ibeckermayer/stash4me/internal/types"
)

var loginCmd = &cobra.Command{
	Use:   "login <reddit|x>",
	Short: "Log in to a platform through a browser window",
	Long: "Opens a visible browser window on the platform's login page, waits for " +
		"you to sign in, then captures and stores the session cookies for later " +
		"collection runs.",
	Args: cobra.ExactArgs(1),
	RunE: loginAction,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <reddit|x>",
	Short: "Discard a platform's stored session cookies",
	Args:  cobra.ExactArgs(1),
	RunE:  logoutAction,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func managerFor(platformArg string) (*auth.Manager, error) {
	var platform types.Platform
	var spec auth.LoginSpec

	switch platformArg {
	case "reddit":
		platform, spec = types.PlatformReddit, redditLoginSpec
	case "x", "twitter":
		platform, spec = types.PlatformX, xLoginSpec
	default:
		return nil, fmt.Errorf("unknown platform %q (want reddit or x)", platformArg)
	}

	store, err := cookieStoreFor(platform)
	if err != nil {
		return nil, err
	}
	return auth.NewManager(store, spec, log), nil
}

func loginAction(cmd *cobra.Command, args []string) error {
	manager, err := managerFor(args[0])
	if err != nil {
		return err
	}

	if manager.IsAuthenticated() {
		fmt.Printf("already logged in to %s; run `stash4me logout %s` first to re-login\n", args[0], args[0])
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := manager.Login(ctx); err != nil {
		return err
	}
	fmt.Printf("logged in to %s\n", args[0])
	return nil
}

func logoutAction(_ *cobra.Command, args []string) error {
	manager, err := managerFor(args[0])
	if err != nil {
		return err
	}

	if err := manager.Logout(); err != nil {
		return err
	}
	fmt.Printf("logged out of %s\n", args[0])
	return nil
}
