package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/errors"
	"github.com/go-sif/fanout/logging"
	uuid "github.com/gofrs/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// EngineConf configures an Engine
type EngineConf struct {
	MaxConns int // the maximum number of concurrent connections, and therefore queries. Defaults to 16.
	Logger   log.Logger
}

// Engine is a QueryEngine over a shared-cache, in-memory SQLite database.
// Each Engine owns its own database, which lives until Close is called.
type Engine struct {
	id     string
	db     *sql.DB
	anchor *sql.Conn // keeps the in-memory database alive while pooled connections come and go
	lock   sync.RWMutex
	tables map[string]*fanout.Table
	closed bool
	logger log.Logger
}

// CreateEngine is a factory for Engines
func CreateEngine(ctx context.Context, conf *EngineConf) (*Engine, error) {
	if conf == nil {
		conf = &EngineConf{}
	}
	if conf.MaxConns <= 0 {
		conf.MaxConns = 16
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate engine id: %w", err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:fanout-%s?mode=memory&cache=shared", id.String()))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(conf.MaxConns)
	db.SetMaxIdleConns(conf.MaxConns)
	anchor, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Engine{
		id:     id.String(),
		db:     db,
		anchor: anchor,
		tables: make(map[string]*fanout.Table),
		logger: log.With(logging.OrNop(conf.Logger), "engine", id.String()),
	}, nil
}

// Factory returns a fanout.QueryEngineFactory producing Engines with the given configuration
func Factory(conf *EngineConf) fanout.QueryEngineFactory {
	return func(ctx context.Context) (fanout.QueryEngine, error) {
		var c EngineConf
		if conf != nil {
			c = *conf
		}
		return CreateEngine(ctx, &c)
	}
}

// ID returns the unique id of this Engine
func (e *Engine) ID() string {
	return e.id
}

// Register materializes a Table under the given name. Registration is exclusive:
// it waits for running queries, and blocks new ones until it completes.
func (e *Engine) Register(ctx context.Context, name string, t *fanout.Table) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.closed {
		return errors.ErrEngineClosed
	}
	if _, ok := e.tables[name]; ok {
		return fmt.Errorf("table %s is already registered", name)
	}
	schema := t.Schema()
	if schema == nil || schema.NumColumns() == 0 {
		return fmt.Errorf("table %s has no schema", name)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, createTableStatement(name, schema)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	stmt, err := tx.PrepareContext(ctx, insertStatement(name, schema))
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", name, err)
	}
	defer stmt.Close()
	err = t.ForEachRow(func(row []interface{}) error {
		_, err := stmt.ExecContext(ctx, row...)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.tables[name] = t
	level.Debug(e.logger).Log("msg", "registered table", "table", name, "rows", t.NumRows(), "columns", schema.NumColumns())
	return nil
}

// Execute runs a query against the registered Tables, returning one Record per result row.
// Failures are reported as *errors.QueryError.
func (e *Engine) Execute(ctx context.Context, query string) ([]fanout.Record, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	if e.closed {
		return nil, &errors.QueryError{Query: query, Err: errors.ErrEngineClosed}
	}
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, newQueryError(query, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, newQueryError(query, err)
	}
	var result []fanout.Record
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, newQueryError(query, err)
		}
		rec := make(fanout.Record, len(cols))
		for i, c := range cols {
			rec[c] = normalize(vals[i])
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, newQueryError(query, err)
	}
	return result, nil
}

// Tables returns the names of all registered Tables, sorted
func (e *Engine) Tables() []string {
	e.lock.RLock()
	defer e.lock.RUnlock()
	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases the database. Registered Tables are discarded.
func (e *Engine) Close() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.tables = make(map[string]*fanout.Table)
	anchorErr := e.anchor.Close()
	if err := e.db.Close(); err != nil {
		return err
	}
	return anchorErr
}

func quoteIdent(name string) string {
	return "\"" + strings.ReplaceAll(name, "\"", "\"\"") + "\""
}

func createTableStatement(name string, schema *fanout.Schema) string {
	var res strings.Builder
	fmt.Fprintf(&res, "CREATE TABLE %s (", quoteIdent(name))
	for i := 0; i < schema.NumColumns(); i++ {
		col := schema.Column(i)
		if i > 0 {
			fmt.Fprint(&res, ", ")
		}
		fmt.Fprintf(&res, "%s %s", quoteIdent(col.Name), col.Type.SQLType())
	}
	fmt.Fprint(&res, ")")
	return res.String()
}

func insertStatement(name string, schema *fanout.Schema) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", schema.NumColumns()), ", ")
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), placeholders)
}

// normalize converts driver values into JSON-friendly scalars
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int:
		return int64(t)
	case float32:
		return float64(t)
	default:
		return t
	}
}
