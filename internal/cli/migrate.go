package cli

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/config"
	"github.com/quarrydb/quarry/migrate"
)

// runner builds a migration runner with the configured directory and
// bookkeeping table.
func (a *app) runner(ad adapter.Adapter, cfg *config.Config) (*migrate.Runner, error) {
	r := migrate.NewRunner(ad,
		migrate.WithTable(cfg.Migrations.Table),
		migrate.WithLogger(a.log),
	)
	if err := r.LoadDir(cfg.Migrations.Dir); err != nil {
		return nil, err
	}
	return r, nil
}

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply all pending migrations as one batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ad, cfg, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ad.Close()
			r, err := a.runner(ad, cfg)
			if err != nil {
				return err
			}
			ran, err := r.Up(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info().Int("applied", len(ran)).Msg("migrate complete")
			return nil
		},
	}
	cmd.AddCommand(
		a.rollbackCmd(),
		a.resetCmd(),
		a.freshCmd(),
		a.statusCmd(),
	)
	return cmd
}

func (a *app) rollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Revert the latest migration batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ad, cfg, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ad.Close()
			r, err := a.runner(ad, cfg)
			if err != nil {
				return err
			}
			reverted, err := r.Rollback(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info().Int("reverted", len(reverted)).Msg("rollback complete")
			return nil
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Revert every applied migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ad, cfg, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ad.Close()
			r, err := a.runner(ad, cfg)
			if err != nil {
				return err
			}
			reverted, err := r.Reset(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info().Int("reverted", len(reverted)).Msg("reset complete")
			return nil
		},
	}
}

func (a *app) freshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fresh",
		Short: "Drop all tables and re-run every migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ad, cfg, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ad.Close()
			r, err := a.runner(ad, cfg)
			if err != nil {
				return err
			}
			ran, err := r.Fresh(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info().Int("applied", len(ran)).Msg("fresh complete")
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show each migration's applied state and batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ad, cfg, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ad.Close()
			r, err := a.runner(ad, cfg)
			if err != nil {
				return err
			}
			statuses, err := r.Status(cmd.Context())
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"Migration", "Applied", "Batch"})
			for _, st := range statuses {
				applied, batch := "no", ""
				if st.Applied {
					applied = "yes"
					batch = strconv.FormatInt(st.Batch, 10)
				}
				tw.AppendRow(table.Row{st.Name, applied, batch})
			}
			tw.Render()
			return nil
		},
	}
}
