package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"ecotrack/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "file", DataDir: "/tmp/eco", AMQPURL: "amqp://x", AMQPExchange: "e", AMQPQueue: "q"}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != File || got.DataDirectory != "/tmp/eco" || got.AMQPQueue != "q" {
		t.Errorf("FromAppConfig() = %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: Memory}, false},
		{"sqlite without path", Config{Type: SQLite}, true},
		{"file without dir", Config{Type: File}, true},
		{"amqp without queue", Config{Type: Memory, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
		{"unknown", Config{Type: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_KeyValueRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	configs := []Config{
		{Type: Memory},
		{Type: File, DataDirectory: filepath.Join(dir, "files")},
		{Type: SQLite, SQLiteDBPath: filepath.Join(dir, "eco.db")},
	}

	factory := NewFactory(nil)
	for _, cfg := range configs {
		t.Run(string(cfg.Type), func(t *testing.T) {
			res, err := factory.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer res.Close()

			if res.Publisher != nil {
				t.Error("no publisher expected without AMQP URL")
			}
			if res.Ping != nil {
				if err := res.Ping(ctx); err != nil {
					t.Errorf("Ping() error = %v", err)
				}
			}

			if err := res.Backend.Set(ctx, "user/u1/weeklyGoal", []byte("42")); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, ok, err := res.Backend.Get(ctx, "user/u1/weeklyGoal")
			if err != nil || !ok || string(got) != "42" {
				t.Errorf("Get() = %q, %v, %v", got, ok, err)
			}
			if err := res.Backend.Delete(ctx, "user/u1/weeklyGoal"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, ok, _ := res.Backend.Get(ctx, "user/u1/weeklyGoal"); ok {
				t.Error("key should be gone after Delete")
			}

			if _, err := res.Backend.ListChallenges(ctx); err != nil {
				t.Errorf("ListChallenges() error = %v", err)
			}
		})
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range Types() {
		got, err := ParseType(string(typ))
		if err != nil || got != typ {
			t.Errorf("ParseType(%q) = %q, %v", typ, got, err)
		}
	}
	if _, err := ParseType("sheets"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfigValidate_ReportsAllProblems(t *testing.T) {
	err := Config{Type: SQLite, AMQPURL: "amqp://x"}.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"database path", "exchange and a queue"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
