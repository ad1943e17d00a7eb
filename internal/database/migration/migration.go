package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                  TEXT        PRIMARY KEY,
  title               TEXT        NOT NULL,
  type_code           TEXT        NOT NULL,
  status              TEXT        NOT NULL,
  owner_id            TEXT        NOT NULL,
  version_major       INT         NOT NULL DEFAULT 1,
  version_minor       INT         NOT NULL DEFAULT 0,
  workflow_active     BOOLEAN     NOT NULL DEFAULT FALSE,
  workflow_started_by TEXT,
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_document_assignments",
		SQL: `CREATE TABLE IF NOT EXISTS document_assignments (
  doc_id  TEXT NOT NULL REFERENCES documents (id),
  role    TEXT NOT NULL,
  user_id TEXT NOT NULL,
  PRIMARY KEY (doc_id, role, user_id)
);`,
	},
	{
		Name: "create_table_document_events",
		SQL: `CREATE TABLE IF NOT EXISTS document_events (
  id         BIGSERIAL   PRIMARY KEY,
  doc_id     TEXT        NOT NULL REFERENCES documents (id),
  event      TEXT        NOT NULL,
  detail     TEXT        NOT NULL,
  actor_id   TEXT        NOT NULL,
  reason     TEXT        NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_document_signatures",
		SQL: `CREATE TABLE IF NOT EXISTS document_signatures (
  id           TEXT        PRIMARY KEY,
  doc_id       TEXT        NOT NULL REFERENCES documents (id),
  action       TEXT        NOT NULL,
  role         TEXT        NOT NULL,
  signer_id    TEXT        NOT NULL,
  artifact_key TEXT        NOT NULL DEFAULT '',
  signed_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_status ON documents (status);`,
	},
	{
		Name: "create_index_documents_owner",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents (owner_id);`,
	},
	{
		Name: "create_index_document_events_doc",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_events_doc ON document_events (doc_id, created_at);`,
	},
	{
		Name: "create_index_document_signatures_doc_action",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_signatures_doc_action ON document_signatures (doc_id, action);`,
	},
}

// EnsureMigrated checks if the 'documents' table exists and runs migrations
// if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, dbHost string) error {
	start := time.Now()

	logJSON(map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		logJSON(map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logJSON(map[string]any{
				"component":      "database",
				"event":          "db_migration_failed",
				"status":         "error",
				"migration_step": step.Name,
				"error_message":  err.Error(),
				"db_host":        dbHost,
				"duration_ms":    time.Since(start).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
