package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "TIMER_BACKEND", "TICK_INTERVAL_MS", "AUTO_ADVANCE", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.StoreDriver != StoreSQLite || cfg.TimerBackend != BackendActor {
		t.Fatalf("unexpected defaults %s/%s", cfg.StoreDriver, cfg.TimerBackend)
	}
	if cfg.TickInterval != time.Second || cfg.PersistEvery != 5 || !cfg.AutoAdvance {
		t.Fatalf("unexpected engine defaults %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Disk")
	t.Setenv("TIMER_BACKEND", "foreground")
	t.Setenv("TICK_INTERVAL_MS", "250")
	t.Setenv("AUTO_ADVANCE", "false")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	if cfg.StoreDriver != StoreDisk || cfg.TimerBackend != BackendForeground {
		t.Fatalf("overrides ignored: %s/%s", cfg.StoreDriver, cfg.TimerBackend)
	}
	if cfg.TickInterval != 250*time.Millisecond || cfg.AutoAdvance {
		t.Fatalf("unexpected engine overrides %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("PERSIST_EVERY_TICKS", "often")
	t.Setenv("AUTO_ADVANCE", "maybe")

	cfg := Load()
	if cfg.StoreDriver != StoreSQLite || cfg.PersistEvery != 5 || !cfg.AutoAdvance {
		t.Fatalf("expected fallbacks, got %+v", cfg)
	}
}
