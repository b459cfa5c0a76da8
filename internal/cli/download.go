package cli

import (
	"github.com/spf13/cobra"
)

func newDownloadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download the checkpoint config and weights, reporting each failure in full",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDownload(cmd)
		},
	}
}

func (a *app) runDownload(cmd *cobra.Command) error {
	ctx := cmd.Context()
	repo := a.cfg.Checkpoint.Repo

	a.print.section("Download " + repo)

	fetcher, err := a.fetcher()
	if err != nil {
		a.print.fail("", "Cannot create hub client")
		a.print.chain(err)
		return nil
	}

	var files []string
	if f := a.cfg.Checkpoint.ConfigFile; f != "" {
		files = append(files, f)
	}
	files = append(files, a.cfg.Checkpoint.Filename)

	for _, file := range files {
		path, err := fetcher.Fetch(ctx, repo, file)
		if err != nil {
			a.print.fail(file, "Download failed")
			a.print.chain(err)
			continue
		}
		a.print.ok(file, "Downloaded to "+path)
	}
	return nil
}
