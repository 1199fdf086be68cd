package cli

import (
	"os"
	"path/filepath"

	"github.com/go-openapi/inflect"
	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/scaffold"
)

func (a *app) makeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "make",
		Short: "Generate model, migration and seeder source files",
	}
	cmd.AddCommand(a.makeModelCmd(), a.makeMigrationCmd(), a.makeSeederCmd())
	return cmd
}

func (a *app) writeFile(path string, src []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return err
	}
	a.log.Info().Str("file", path).Msg("created")
	return nil
}

func (a *app) makeModelCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "model <name>",
		Short: "Generate a model definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			src, err := scaffold.Model(filepath.Base(dir), args[0])
			if err != nil {
				return err
			}
			file := inflect.Underscore(args[0]) + ".go"
			return a.writeFile(filepath.Join(dir, file), src)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "models", "output directory")
	return cmd
}

func (a *app) makeMigrationCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migration <label>",
		Short: "Generate a timestamped migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			file, src, err := scaffold.Migration(filepath.Base(dir), args[0])
			if err != nil {
				return err
			}
			return a.writeFile(filepath.Join(dir, file), src)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "output directory")
	return cmd
}

func (a *app) makeSeederCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seeder <name>",
		Short: "Generate a seeder",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			src, err := scaffold.Seeder(filepath.Base(dir), args[0])
			if err != nil {
				return err
			}
			file := inflect.Underscore(args[0]) + ".go"
			return a.writeFile(filepath.Join(dir, file), src)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "seeders", "output directory")
	return cmd
}
