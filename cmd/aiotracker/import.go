package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/aio-tracker/internal/adapter/cache"
	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/ingest"
	"github.com/arturoeanton/aio-tracker/internal/service"
	"github.com/arturoeanton/aio-tracker/pkg/config"
)

func importCmd(cfgPath *string) *cobra.Command {
	var projectID, name string

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import exported keyword files into a project, one session per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			setupLogger(cfg)
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to import sessions")
			}
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name applies to a single file, got %d", len(args))
			}

			ctx := cmd.Context()
			repo, closeRepo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			analyticsCache, _, closeCache, err := openCache(ctx, cfg)
			if err != nil {
				slog.Warn("cache unavailable, analytics may be stale until expiry", "error", err)
				analyticsCache, closeCache = cache.Noop{}, func() {}
			}
			defer closeCache()

			projects := service.NewProjectService(repo, analyticsCache, service.ProjectDefaults{
				LocationCode: cfg.SERPLocationCode,
				LanguageCode: cfg.SERPLanguageCode,
			})
			sessions := service.NewSessionService(repo, analyticsCache)

			project, err := projects.Lookup(ctx, projectID)
			if err != nil {
				return err
			}

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				rows, format, err := ingest.Parse(data)
				if err != nil {
					return fmt.Errorf("parse %s: %w", path, err)
				}

				sessionName := name
				if sessionName == "" {
					sessionName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				}
				sess, err := sessions.Import(ctx, project, domain.SessionSourceUpload, sessionName, rows, nil)
				if err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: session %s (%s, %d keywords, %d with AI Overview)\n",
					path, sess.ID, format, sess.KeywordCount, sess.AIOCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project ID")
	cmd.Flags().StringVarP(&name, "name", "n", "", "session name (default the file name)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
