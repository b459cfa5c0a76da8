package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/sam3lab/internal/envvar"
	"github.com/ekisa-team/sam3lab/internal/hub"
)

func newAuthCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth [token]",
		Short: "Log in to the model hub and check access to the checkpoint repository",
		Long: `auth logs in with the token given as argument, replacing any stored one. Without
an argument it keeps a valid stored token, or logs in with $HF_TOKEN or one typed at
a hidden prompt. It then checks that the checkpoint repository can be downloaded and
lists the configured checkpoint file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAuth(cmd, args)
		},
	}
}

func (a *app) runAuth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := a.hubClient()
	repo := a.cfg.Checkpoint.Repo

	a.print.section("Hub authentication")

	id, err := client.WhoAmI(ctx)
	loggedIn := err == nil
	if !loggedIn {
		slog.Debug("whoami failed", "error", err)
		a.print.info("", "Not logged in")
	}

	// A token argument always replaces the stored one.
	if !loggedIn || len(args) > 0 {
		var ok bool
		if id, ok = a.login(ctx, client, args); !ok {
			return nil
		}
	}
	a.print.ok("", "Logged in as "+id.Name)

	a.print.section("Repository access")

	file := a.cfg.Checkpoint.ConfigFile
	if file == "" {
		file = a.cfg.Checkpoint.Filename
	}

	switch err := client.CheckAccess(ctx, repo, file); {
	case err == nil:
		a.print.ok(repo, "Access granted")
		a.checkListing(ctx, client, repo)
	case errors.Is(err, hub.ErrGated):
		a.print.warn(repo, "Logged in but access not granted")
		a.print.info("", fmt.Sprintf("Accept the model license at %s/%s and retry", client.Endpoint(), repo))
	case errors.Is(err, hub.ErrRepoNotFound):
		a.print.fail(repo, "Repository not found")
	default:
		a.print.fail(repo, "Access check failed: "+err.Error())
	}
	return nil
}

func (a *app) login(ctx context.Context, client *hub.Client, args []string) (hub.Identity, bool) {
	token, err := a.token(args)
	if err != nil {
		a.print.fail("", "No token: "+err.Error())
		a.printTokenHelp(client)
		return hub.Identity{}, false
	}

	id, err := client.Login(ctx, token)
	if err != nil {
		a.print.fail("", "Login failed: "+err.Error())
		a.printTokenHelp(client)
		return hub.Identity{}, false
	}
	return id, true
}

// checkListing reports whether the repository lists the configured checkpoint.
func (a *app) checkListing(ctx context.Context, client *hub.Client, repo string) {
	filename := a.cfg.Checkpoint.Filename

	info, err := client.RepoInfo(ctx, repo)
	if err != nil {
		a.print.warn(repo, "Repository info unavailable: "+err.Error())
		return
	}
	if info.HasFile(filename) {
		a.print.ok(repo, "Checkpoint "+filename+" listed")
		return
	}
	a.print.warn(repo, "Checkpoint "+filename+" not listed in repository")
}

// token picks the login token: argument, then HF_TOKEN, then a hidden prompt.
func (a *app) token(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if t := strings.TrimSpace(os.Getenv(envvar.HFToken)); t != "" {
		return t, nil
	}

	t, err := a.promptToken("Hub token: ")
	if err != nil {
		return "", err
	}
	if t == "" {
		return "", hub.ErrNoToken
	}
	return t, nil
}

func (a *app) printTokenHelp(client *hub.Client) {
	a.print.info("", fmt.Sprintf("Create a read token at %s/settings/tokens", client.Endpoint()))
	a.print.info("", "Then run: sam3lab auth <token>  (or set "+envvar.HFToken+")")
}
