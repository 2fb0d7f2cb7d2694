package db

import (
	"fmt"

	"foodguide/internal/guide"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&guide.Guide{},
		&guide.Like{},
		&guide.Comment{},
		&guide.LibraryEntry{},
	); err != nil {
		return err
	}

	// Explore lists newest first; likes are also looked up per user.
	stmts := []string{
		`create index if not exists idx_guides_created_desc on guides(created_at desc);`,
		`create index if not exists idx_likes_user on likes(user_id);`,
		`create index if not exists idx_library_user_id on library_entries(user_id, id desc);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
