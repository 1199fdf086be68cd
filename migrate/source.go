package migrate

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/schema"
)

// SQL migration files carry their direction in annotated sections:
//
//	-- +quarry Up
//	CREATE TABLE users (id INTEGER PRIMARY KEY);
//	-- +quarry Down
//	DROP TABLE users;
//
// Statements end with ";" at end of line. The file name (without the
// .sql extension) is the migration name and must follow the
// timestamp_label convention.
const (
	upDirective   = "-- +quarry Up"
	downDirective = "-- +quarry Down"
)

// ParseSQL builds a migration from annotated SQL source.
func ParseSQL(name, src string) (*Migration, error) {
	if !nameRe.MatchString(name) {
		return nil, quarry.NewConfigError("migrate: invalid migration name %q", name)
	}
	up, down, err := splitSections(src)
	if err != nil {
		return nil, quarry.NewConfigError("migrate: %s: %v", name, err)
	}
	run := func(stmts []string) func(ctx context.Context, s *schema.Schema) error {
		return func(ctx context.Context, s *schema.Schema) error {
			for _, stmt := range stmts {
				if _, err := s.Adapter().Raw(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return &Migration{Name: name, Up: run(up), Down: run(down)}, nil
}

// splitSections separates the Up and Down statement lists.
func splitSections(src string) (up, down []string, err error) {
	var section *[]string
	var stmt strings.Builder
	flush := func() {
		s := strings.TrimSpace(stmt.String())
		stmt.Reset()
		if s == "" || section == nil {
			return
		}
		*section = append(*section, strings.TrimSuffix(s, ";"))
	}
	scanner := bufio.NewScanner(strings.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.EqualFold(trimmed, upDirective):
			flush()
			section = &up
			continue
		case strings.EqualFold(trimmed, downDirective):
			flush()
			section = &down
			continue
		case strings.HasPrefix(trimmed, "--"):
			continue
		}
		if section == nil {
			if trimmed != "" {
				return nil, nil, quarry.NewConfigError("statement before %q directive", upDirective)
			}
			continue
		}
		stmt.WriteString(line)
		stmt.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if len(up) == 0 {
		return nil, nil, quarry.NewConfigError("no Up statements")
	}
	return up, down, nil
}

// LoadDir registers every *.sql migration found in dir, sorted by
// file name. A missing directory is not an error; it just contributes
// nothing.
func (r *Runner) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, file := range names {
		src, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return err
		}
		m, err := ParseSQL(strings.TrimSuffix(file, ".sql"), string(src))
		if err != nil {
			return err
		}
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}
