package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"wealthplanner/internal/config"
	"wealthplanner/internal/storage"
	"wealthplanner/internal/storage/memory"
	"wealthplanner/internal/storage/redisotp"
)

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "./x.db",
		OTPBackend:   "redis",
		RedisAddr:    "localhost:6379",
		RedisDB:      2,
	}
	c, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("from app config: %v", err)
	}
	if c.Type != SQLiteBackend || c.OTPType != RedisOTP || c.RedisDB != 2 {
		t.Fatalf("got %+v", c)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	app.DataBackend = "sheets"
	if _, err := FromAppConfig(app); err == nil || !strings.Contains(err.Error(), "invalid backend type") {
		t.Fatalf("got %v", err)
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, OTPType: SQLOTP})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := res.Store.(*memory.Store); !ok {
		t.Fatalf("store is %T", res.Store)
	}
	if res.OTPs != res.Store.(*memory.Store) {
		t.Fatal("memory backend keeps its own codes")
	}
	if res.Events != nil {
		t.Fatal("events are off unless enabled")
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestCreateSQLiteBackendWithRedisOTPs(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "wp.db"),
		OTPType:      RedisOTP,
		RedisAddr:    mr.Addr(),
	}
	res, err := NewFactory(nil).CreateBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Store.Close()
	defer res.Cleanup()

	if _, ok := res.Store.(*storage.SQLiteRepository); !ok {
		t.Fatalf("store is %T", res.Store)
	}
	if _, ok := res.OTPs.(*redisotp.Store); !ok {
		t.Fatalf("otp store is %T", res.OTPs)
	}
	if err := res.Store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
