package db

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to the platform database holding tenants, records, and the
// audit chain, and verifies the connection with a ping. Guarded mutations
// hold a row lock for the duration of one short transaction, so the pool is
// kept modest rather than sized for long-running work. Caller owns Close.
func Open(dsn string) (*sql.DB, error) {
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(16)
	database.SetConnMaxIdleTime(5 * time.Minute)
	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}
