package compdb

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// Postgres represents a Postgres database client.
type Postgres struct {
	db *sqlx.DB
}

// New creates a new Postgres client.
func New(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{db: db}, err
}

// Connect creates a new Postgres client, retrying the connection a few
// times with a growing sleep before giving up. Useful at process start
// when the database may still be coming up.
func Connect(dsn string) (*Postgres, error) {
	retries, count, sleep := 3, 0, 5
	db, err := New(dsn)
	for err != nil {
		if count > retries {
			return nil, err
		}
		time.Sleep(time.Duration(sleep) * time.Second)
		sleep += 3
		db, err = New(dsn)
		count++
	}
	return db, nil
}
