package cli

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/seed"
)

func (a *app) seedCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Run the SQL seed files from the seeds directory in name order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ad, _, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ad.Close()

			seeders, err := sqlSeeders(dir)
			if err != nil {
				return err
			}
			if len(seeders) == 0 {
				a.log.Warn().Str("dir", dir).Msg("no seed files found")
				return nil
			}
			return seed.NewRunner(ad, seed.WithLogger(a.log)).Run(cmd.Context(), seeders...)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "seeds", "seed file directory")
	return cmd
}

// sqlSeeders wraps every *.sql file in dir as a seeder executing its
// statements through the adapter, one statement per ";"-terminated
// line group.
func sqlSeeders(dir string) ([]seed.Seeder, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	seeders := make([]seed.Seeder, 0, len(names))
	for _, file := range names {
		path := filepath.Join(dir, file)
		seeders = append(seeders, seed.Func(strings.TrimSuffix(file, ".sql"),
			func(ctx context.Context, a adapter.Adapter) error {
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				for _, stmt := range splitStatements(string(src)) {
					if _, err := a.Raw(ctx, stmt); err != nil {
						return err
					}
				}
				return nil
			}))
	}
	return seeders, nil
}

func splitStatements(src string) []string {
	var stmts []string
	for _, part := range strings.Split(src, ";") {
		if s := strings.TrimSpace(part); s != "" && !strings.HasPrefix(s, "--") {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
