// Package db holds the SQL schema shared by the services and the transaction store.
package db

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	log "sw/ocpp/central/internal/logging"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/juju/errors"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Driver names accepted by ConnectDb.
const (
	DbType_Sqlite   = "sqlite3"
	DbType_Postgres = "postgres"
	DbType_Pgx      = "pgx"
)

// DB is a connection pool together with the dialect of its driver.
type DB struct {
	*sql.DB
	dbType string
}

func ConnectDb(dbType string, connStr string) (*DB, error) {
	switch dbType {
	case DbType_Sqlite, DbType_Postgres, DbType_Pgx:
	default:
		return nil, errors.NotSupportedf("db type %q", dbType)
	}

	conn, err := sql.Open(dbType, connStr)
	if err != nil {
		return nil, errors.Annotatef(err, "opening %s", dbType)
	}
	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Annotatef(err, "connecting to %s", dbType)
	}
	conn.SetConnMaxLifetime(time.Minute * 2)
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(5)

	log.Logger.Info("Connected to: " + dbType)
	return &DB{DB: conn, dbType: dbType}, nil
}

func (db *DB) Type() string {
	return db.dbType
}

// Rebind rewrites the ? placeholders of query into the $n form postgres expects.
func (db *DB) Rebind(query string) string {
	if db.dbType == DbType_Sqlite {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (db *DB) serialKey() string {
	if db.dbType == DbType_Sqlite {
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "BIGSERIAL PRIMARY KEY"
}

func CreateTables(db *DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id ` + db.serialKey() + `,
			guid TEXT NOT NULL,
			chargePointId TEXT NOT NULL,
			connectorId INTEGER NOT NULL,
			idTag TEXT NOT NULL,
			meterStart BIGINT NOT NULL,
			timeStarted BIGINT NOT NULL,
			meterStop BIGINT NULL,
			timeEnded BIGINT NULL,
			stopReason TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS transactions_chargePointId_IDX ON transactions (chargePointId);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id ` + db.serialKey() + `,
			chargePointId TEXT NOT NULL,
			serverNode TEXT NOT NULL,
			direction TEXT NOT NULL,
			messageTypeId INTEGER NOT NULL,
			uniqueId TEXT NOT NULL,
			action TEXT NOT NULL,
			body TEXT NOT NULL,
			messageTime BIGINT NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS messages_frame_IDX ON messages (chargePointId, direction, messageTypeId, uniqueId);`,
	}
	for _, statement := range statements {
		if _, err := db.Exec(statement); err != nil {
			return errors.Annotate(err, "creating tables")
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique constraint failure from any of
// the supported drivers.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
