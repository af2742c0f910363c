package database

import (
	"context"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/domain"
	"github.com/sandeepkv93/otp-auth-service/internal/observability"

	"gorm.io/gorm"
)

func models() []any {
	return []any{&domain.Account{}}
}

func Migrate(db *gorm.DB) error {
	start := time.Now()
	err := db.AutoMigrate(models()...)
	observability.RecordDatabaseStartupDuration(context.Background(), "migrate", time.Since(start))
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "error")
		return err
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "success")
	return nil
}

// PendingTables lists the tables AutoMigrate would create.
func PendingTables(db *gorm.DB) ([]string, error) {
	var pending []string
	for _, m := range models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, err
		}
		if !db.Migrator().HasTable(m) {
			pending = append(pending, stmt.Schema.Table)
		}
	}
	return pending, nil
}
