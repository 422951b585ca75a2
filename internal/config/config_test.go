package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
api:
  url: https://api.example
  token: from-file
realtime:
  enable: true
  heartbeat: 10s
cache:
  memcachedAddr: localhost:11211
events:
  redisAddr: localhost:6379
  redisDB: 2
`)

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if conf.API.URL != "https://api.example" || conf.API.Token != "from-file" {
		t.Fatalf("unexpected api config %+v", conf.API)
	}
	if !conf.Realtime.Enable || conf.Realtime.Heartbeat != 10*time.Second {
		t.Fatalf("unexpected realtime config %+v", conf.Realtime)
	}
	if conf.Cache.TTL != 10*time.Minute || conf.Cache.MemcachedAddr != "localhost:11211" {
		t.Fatalf("unexpected cache config %+v", conf.Cache)
	}
	if conf.Events.RedisDB != 2 || conf.Events.Channel != "chatkit:events" {
		t.Fatalf("unexpected events config %+v", conf.Events)
	}
	if conf.Inspector.Listen != ":8000" {
		t.Fatalf("expected default listen address got %s", conf.Inspector.Listen)
	}
}

func TestLoadTokenFromEnv(t *testing.T) {
	t.Setenv(tokenEnv, "from-env")
	path := writeConfig(t, "api:\n  url: https://api.example\n  token: from-file\n")

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if conf.API.Token != "from-env" {
		t.Fatalf("expected env token got %s", conf.API.Token)
	}
}

func TestLoadRequiresURL(t *testing.T) {
	path := writeConfig(t, "api:\n  token: x\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error without api.url")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
