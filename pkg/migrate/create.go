package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

// CreateSQLMigrations writes one goose file per migration set, all sharing the
// same version so the postgres and sqlite schemas move together:
//
//	<dir>/<YYYYMMDDHHMMSS>_<name>.sql
func CreateSQLMigrations(name string, dirs ...string) ([]string, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("at least one migrations dir is required")
	}
	safe := sanitizeMigrationName(name)
	if safe == "" {
		return nil, fmt.Errorf("name %q results in empty sanitized filename", name)
	}

	filename := fmt.Sprintf("%s_%s.sql", time.Now().UTC().Format("20060102150405"), safe)
	paths := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if dir == "" {
			return paths, fmt.Errorf("dir is required")
		}
		full := filepath.Join(dir, filename)
		if _, err := os.Stat(full); err == nil {
			return paths, fmt.Errorf("migration already exists: %s", full)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, fmt.Errorf("mkdir %q: %w", dir, err)
		}
		if err := os.WriteFile(full, []byte(migrationTemplate(safe, dialectOf(dir))), 0o644); err != nil {
			return paths, fmt.Errorf("write migration %q: %w", full, err)
		}
		paths = append(paths, full)
	}
	return paths, nil
}

func sanitizeMigrationName(name string) string {
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = nameSanitizeRe.ReplaceAllString(strings.ReplaceAll(safe, " ", "_"), "_")
	return strings.Trim(safe, "_")
}

func dialectOf(dir string) string {
	if filepath.Clean(dir) == filepath.Clean(SQLiteDir) || strings.HasSuffix(filepath.Clean(dir), "_sqlite") {
		return DialectSQLite
	}
	return DialectPostgres
}

func migrationTemplate(name, dialect string) string {
	return fmt.Sprintf(`-- %s (%s)
-- +goose Up
-- +goose StatementBegin
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- +goose StatementEnd
`, name, dialect)
}
