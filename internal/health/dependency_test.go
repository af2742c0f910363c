package health

import (
	"context"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/otp-auth-service/internal/domain"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestDBCheckerRequiresSchema(t *testing.T) {
	db := openDB(t)
	checker := NewDBChecker(db)

	res := checker.Check(context.Background())
	if res.Healthy || !strings.Contains(res.Error, "accounts table missing") {
		t.Fatalf("expected unmigrated store to be unready, got %+v", res)
	}

	if err := db.AutoMigrate(&domain.Account{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if res := checker.Check(context.Background()); !res.Healthy || res.Name != "db" {
		t.Fatalf("expected healthy db, got %+v", res)
	}

	sqlDB, _ := db.DB()
	_ = sqlDB.Close()
	if res := checker.Check(context.Background()); res.Healthy || res.Error == "" {
		t.Fatalf("expected unhealthy db after close, got %+v", res)
	}
}

func TestRedisCheckerPingsServer(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := NewRedisChecker(client)
	if res := checker.Check(context.Background()); !res.Healthy || res.Name != "redis" {
		t.Fatalf("expected healthy redis, got %+v", res)
	}
	m.Close()
	if res := checker.Check(context.Background()); res.Healthy || !strings.HasPrefix(res.Error, "redis ping") {
		t.Fatalf("expected unhealthy redis after shutdown, got %+v", res)
	}
}

func TestNilDependenciesYieldNoChecker(t *testing.T) {
	if NewDBChecker(nil) != nil || NewRedisChecker(nil) != nil {
		t.Fatal("expected nil checkers for nil dependencies")
	}
}
