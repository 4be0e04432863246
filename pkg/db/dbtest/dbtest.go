// Package dbtest opens throwaway SQLite databases carrying the application schema.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS clients (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  document TEXT,
  contact TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  location TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS licenses (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  number TEXT NOT NULL,
  issuer TEXT,
  type TEXT,
  issued_at DATETIME,
  expires_at DATETIME,
  metadata TEXT NOT NULL DEFAULT '{}',
  status TEXT NOT NULL DEFAULT 'indeterminate',
  status_evaluated_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS avcbs (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  license_id TEXT,
  ppci_number TEXT,
  issued_at DATETIME,
  expires_at DATETIME,
  has_compensatory_measures INTEGER NOT NULL DEFAULT 0,
  metadata TEXT NOT NULL DEFAULT '{}',
  status TEXT NOT NULL DEFAULT 'indeterminate',
  status_evaluated_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS processes (
  id TEXT PRIMARY KEY,
  license_id TEXT NOT NULL,
  protocol_number TEXT NOT NULL,
  current_status TEXT,
  timeline TEXT NOT NULL DEFAULT '[]',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS conditionals (
  id TEXT PRIMARY KEY,
  license_id TEXT NOT NULL,
  description TEXT NOT NULL,
  due_date DATETIME NOT NULL,
  anchor_date DATETIME NOT NULL,
  frequency TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  status_evaluated_at DATETIME,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS conditional_executions (
  id TEXT PRIMARY KEY,
  conditional_id TEXT NOT NULL,
  occurrence_due DATETIME,
  executed_by TEXT NOT NULL,
  executed_at DATETIME NOT NULL,
  outcome TEXT NOT NULL,
  evidence_attachment_id TEXT,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS calendar_events (
  id TEXT PRIMARY KEY,
  related_type TEXT NOT NULL,
  related_id TEXT NOT NULL,
  title TEXT NOT NULL,
  start_at DATETIME NOT NULL,
  end_at DATETIME NOT NULL,
  color TEXT,
  reminder_days TEXT NOT NULL DEFAULT '[]',
  manual_override INTEGER NOT NULL DEFAULT 0,
  last_reminded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (related_type, related_id)
);`,
	`CREATE TABLE IF NOT EXISTS attachments (
  id TEXT PRIMARY KEY,
  attachable_type TEXT NOT NULL,
  attachable_id TEXT NOT NULL,
  filename TEXT NOT NULL,
  path TEXT NOT NULL,
  mime TEXT NOT NULL,
  size INTEGER NOT NULL,
  uploaded_by TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  dedupe_key TEXT NOT NULL UNIQUE,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE IF NOT EXISTS waste_handlers (
  id TEXT PRIMARY KEY,
  role TEXT NOT NULL,
  name TEXT NOT NULL,
  facility_type TEXT,
  license_number TEXT NOT NULL,
  license_issued_at DATETIME,
  license_expires_at DATETIME,
  contact_email TEXT,
  contact_phone TEXT,
  status TEXT NOT NULL DEFAULT 'indeterminate',
  status_evaluated_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
}

// Open returns a private in-memory database named after the running test so
// parallel tests never share tables.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
