package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/sitecompliance-backend/pkg/config"
)

const (
	DefaultDir = "pkg/migrate/migrations"
	SQLiteDir  = "pkg/migrate/migrations_sqlite"

	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// Target is the dialect and directory pair for one database flavour.
type Target struct {
	Dialect string
	Dir     string
}

// TargetFor picks the migration set matching the configured database.
func TargetFor(flags config.FeatureFlagsConfig) Target {
	if flags.UseSQLite {
		return Target{Dialect: DialectSQLite, Dir: SQLiteDir}
	}
	return Target{Dialect: DialectPostgres, Dir: DefaultDir}
}

// Run executes a standard goose command that requires a DB connection.
func Run(ctx context.Context, db *sql.DB, target Target, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if target.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	if err := goose.SetDialect(target.Dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	// RunContext prints status output to stdout (goose internal)
	if err := goose.RunContext(ctx, command, db, target.Dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion migrates up/down to the requested version by comparing current DB version.
func MigrateToVersion(ctx context.Context, db *sql.DB, target Target, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	if err := goose.SetDialect(target.Dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	version, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	current, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == version:
		return nil
	case current < version:
		if err := goose.UpToContext(ctx, db, target.Dir, version); err != nil {
			return fmt.Errorf("goose up-to %d: %w", version, err)
		}
		return nil
	default:
		if err := goose.DownToContext(ctx, db, target.Dir, version); err != nil {
			return fmt.Errorf("goose down-to %d: %w", version, err)
		}
		return nil
	}
}
