package db

import (
	"database/sql"

	"github.com/campusconnect/backend/internal/db/migrations"
	"github.com/pressly/goose/v3"
)

func Migrate(database *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(database, ".")
}
