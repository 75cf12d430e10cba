package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type DB struct {
	*sql.DB
	dialect Dialect
}

// NewConnection opens and pings a Postgres database.
func NewConnection(host, port, user, password, dbname string) (*DB, error) {
	return open(DialectPostgres, "postgres", postgresDSN(host, port, user, password, dbname))
}

// postgresDSN builds a postgres:// URL. Credentials are escaped and the port
// is omitted when empty.
func postgresDSN(host, port, user, password, dbname string) string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   host,
		Path:   "/" + dbname,
	}
	if port != "" {
		dsn.Host = host + ":" + port
	}

	query := dsn.Query()
	query.Set("sslmode", "disable")
	dsn.RawQuery = query.Encode()

	return dsn.String()
}

// NewSQLiteConnection opens the embedded store at path, creating the file if needed.
func NewSQLiteConnection(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"

	db, err := open(DialectSQLite, "sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// A single writer avoids SQLITE_BUSY inside replace transactions.
	db.SetMaxOpenConns(1)

	return db, nil
}

func open(dialect Dialect, driver, dsn string) (*DB, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	return &DB{DB: sqlDB, dialect: dialect}, nil
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
func (db *DB) Rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 16)

	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}
