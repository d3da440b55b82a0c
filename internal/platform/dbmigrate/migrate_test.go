package dbmigrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/riskibarqy/match-predictor/db"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(db.Migrations, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) == 0 {
		t.Fatalf("expected embedded migrations")
	}
	for version := range ups {
		if !downs[version] {
			t.Fatalf("migration %s has no down file", version)
		}
	}
}

func TestNormalizeDBURL(t *testing.T) {
	raw := "postgres://u:p@localhost:5432/app?sslmode=disable"
	if got := NormalizeDBURL(raw, false); got != raw {
		t.Fatalf("expected url unchanged, got %s", got)
	}

	got := NormalizeDBURL(raw, true)
	if !strings.Contains(got, "disable_prepared_binary_result=yes") || !strings.Contains(got, "sslmode=disable") {
		t.Fatalf("unexpected normalized url: %s", got)
	}
}
