package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"boosty_rss/internal/boosty"
	"boosty_rss/internal/config"
	"boosty_rss/internal/feed"
	"boosty_rss/internal/session"
	"boosty_rss/internal/storage"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "boosty-rss <author>",
		Short:         "Generate a podcast RSS feed from a Boosty blog",
		Long:          "Authenticates with Boosty and writes <author>.xml listing every accessible post as a podcast episode.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := newLogger(cfg.LogLevel)
			slog.SetDefault(log)

			path, err := run(cmd.Context(), cfg, args[0], cmd.InOrStdin(), cmd.ErrOrStderr(), log)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

// run authenticates and writes the feed for author, returning its path.
func run(ctx context.Context, cfg *config.Config, author string, in io.Reader, prompts io.Writer, log *slog.Logger) (string, error) {
	if err := boosty.ValidateAuthor(author); err != nil {
		return "", err
	}

	store, err := storage.Open(cfg.CredentialsPath)
	if err != nil {
		return "", fmt.Errorf("open credentials %s: %w", cfg.CredentialsPath, err)
	}
	defer func() { _ = store.Close() }()

	api := boosty.New(cfg.APIURL, &http.Client{Timeout: cfg.HTTPTimeout})

	sess := session.New(store, api, session.NewConsolePrompter(in, prompts), log)
	if err := sess.Initialize(ctx); err != nil {
		return "", err
	}
	if err := sess.EnsureAuthenticated(ctx); err != nil {
		return "", err
	}

	creds := sess.Credentials()
	builder := feed.NewBuilder(api.WithCredentials(creds.DeviceID, creds.AccessToken), cfg.SiteURL, cfg.Location(), log)

	blog, err := builder.FetchBlogSummary(ctx, author)
	if err != nil {
		return "", err
	}
	posts, err := builder.FetchPosts(ctx, author)
	if err != nil {
		return "", err
	}
	doc, err := builder.BuildFeed(blog, posts)
	if err != nil {
		return "", err
	}

	path, err := feed.Write(doc, cfg.OutputDir, author)
	if err != nil {
		return "", fmt.Errorf("write feed: %w", err)
	}
	log.Info("feed written", "author", author, "path", path, "entries", len(doc.Entries))
	return path, nil
}
