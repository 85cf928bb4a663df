package database

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/lectern/core"
	appfs "github.com/trezcool/lectern/fs"
)

const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
)

func init() {
	sqlx.BindDriver(EngineSQLite, sqlx.QUESTION)
}

// Open opens the configured database and waits for it to answer.
func Open(conf *core.Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch conf.Database.Engine {
	case EngineSQLite, "":
		db, err = OpenSQLite(conf.Database.Path)
	case EnginePostgres:
		db, err = sqlx.Open(EnginePostgres, conf.Database.URL)
	default:
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (creating it if needed) the SQLite database file at p.
func OpenSQLite(p string) (*sqlx.DB, error) {
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating database directory")
		}
	}

	q := make(url.Values)
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_time_format", "sqlite")

	db, err := sqlx.Open(EngineSQLite, "file:"+p+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// MigrationsDir is the embedded migrations directory of the db's engine.
func MigrationsDir(db *sqlx.DB) string {
	return path.Join("migrations", db.DriverName())
}

// SetUpGoose points goose at the embedded migrations of db's engine.
func SetUpGoose(db *sqlx.DB) error {
	goose.SetBaseFS(appfs.FS)
	goose.SetLogger(goose.NopLogger())
	return errors.Wrap(goose.SetDialect(db.DriverName()), "setting goose dialect")
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if err := SetUpGoose(db); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, MigrationsDir(db)); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
