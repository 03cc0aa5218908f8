package integration_test

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type auditTypeCount struct {
	Type  string `db:"type"`
	Count int    `db:"n"`
}

func loadAuditTypes(t *testing.T, dbPath string) map[string]int {
	t.Helper()
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open audit db: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	var rows []auditTypeCount
	if err := db.Select(&rows, `SELECT type, COUNT(*) AS n FROM events GROUP BY type`); err != nil {
		t.Fatalf("query audit events: %v", err)
	}
	types := make(map[string]int, len(rows))
	for _, r := range rows {
		types[r.Type] = r.Count
	}
	return types
}

func requireAuditEvents(t *testing.T, dbPath string, want []string) {
	t.Helper()
	types := loadAuditTypes(t, dbPath)
	for _, eventType := range want {
		if types[eventType] == 0 {
			t.Fatalf("missing audit event %s in %s (have %v)", eventType, dbPath, types)
		}
	}
}
