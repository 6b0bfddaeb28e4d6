package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "secret",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.TokenTTL != 7*24*time.Hour {
		t.Fatalf("unexpected defaults: port=%s ttl=%s", cfg.Port, cfg.TokenTTL)
	}
	if len(cfg.SlotTimes) != 7 || cfg.SlotTimes[0] != "09:00" {
		t.Fatalf("unexpected slot times: %v", cfg.SlotTimes)
	}
	if !cfg.Redis.Enabled || cfg.Redis.LockTTL != 5*time.Second {
		t.Fatalf("unexpected redis config: %+v", cfg.Redis)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("expected every origin allowed by default, got %v", cfg.CORSOrigins)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC, got %s", cfg.Location())
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	if _, err := load(context.Background(), envconfig.MapLookuper(map[string]string{})); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "secret",
		"SLOT_TIMES":      "08:00,08:30",
		"CLINIC_TIMEZONE": "America/New_York",
		"REDIS_ENABLED":   "false",
		"KAFKA_BROKERS":   "k1:9092,k2:9092",
		"CORS_ORIGINS":    "https://app.clinic.test,http://localhost:5173",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.SlotTimes) != 2 || cfg.SlotTimes[1] != "08:30" {
		t.Fatalf("unexpected slot times: %v", cfg.SlotTimes)
	}
	if cfg.Location().String() != "America/New_York" {
		t.Fatalf("unexpected location: %s", cfg.Location())
	}
	if cfg.Redis.Enabled {
		t.Fatalf("expected redis disabled")
	}
	if cfg.Kafka.Brokers != "k1:9092,k2:9092" {
		t.Fatalf("unexpected brokers: %s", cfg.Kafka.Brokers)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://localhost:5173" {
		t.Fatalf("unexpected CORS origins: %v", cfg.CORSOrigins)
	}
}

func TestLoad_RejectsUnknownTimezone(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "secret",
		"CLINIC_TIMEZONE": "Mars/Olympus",
	}))
	if err == nil {
		t.Fatalf("expected timezone error")
	}
}
