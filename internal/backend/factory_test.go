package backend

import (
	"context"
	"path/filepath"
	"testing"

	"salesdash/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "redis"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "csv", SalesCSVPath: "sales.csv"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != CSVBackend || cfg.CSVPath != "sales.csv" {
		t.Fatalf("unexpected backend config: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"csv ok", Config{Type: CSVBackend, CSVPath: "x.csv"}, false},
		{"csv missing path", Config{Type: CSVBackend}, true},
		{"sqlite missing path", Config{Type: SQLiteBackend}, true},
		{"sheets missing id", Config{Type: SheetsBackend, GoogleServiceAccountJSON: "{}"}, true},
		{"sheets missing credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc"}, true},
		{"memory ok", Config{Type: MemoryBackend}, false},
		{"unknown type", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("csv is read-only", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: CSVBackend, CSVPath: "sales.csv"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if res.Backend == nil || res.Writer != nil || res.Imports != nil {
			t.Fatalf("unexpected csv result: %+v", res)
		}
		if err := res.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})

	t.Run("sqlite is writable", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "sales.db")})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		defer res.Close()
		if res.Writer == nil || res.Imports == nil || res.Cleanup == nil {
			t.Fatalf("sqlite backend should expose writer, import log and cleanup")
		}
		rows, err := res.Backend.ReadRows(ctx)
		if err != nil || len(rows) != 0 {
			t.Fatalf("fresh sqlite backend: %v %v", rows, err)
		}
	})

	t.Run("memory is writable", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if res.Writer == nil {
			t.Fatalf("memory backend should be writable")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: SheetsBackend}); err == nil {
			t.Fatalf("expected validation error")
		}
	})
}
