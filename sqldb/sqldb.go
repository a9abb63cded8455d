package sqldb

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type DBer interface {
	CreateTable(t TableData) error
	Insert(t TableData) error
}

type Field struct {
	Title string
	Type  string
}

type TableData struct {
	TableName   string
	ColumnNames []Field
	Args        []any
	DataCount   int
	AutoKey     bool
}

type Sqldb struct {
	options
	db *sql.DB
}

func New(opts ...Option) (*Sqldb, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	d := &Sqldb{options: options}
	if err := d.OpenDB(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Sqldb) OpenDB() error {
	db, err := sql.Open("sqlite", d.sqlURL)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(d.maxConn)
	db.SetMaxIdleConns(d.maxConn)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}
	d.db = db
	return nil
}

func (d *Sqldb) CreateTable(t TableData) error {
	if len(t.ColumnNames) == 0 {
		return fmt.Errorf("create table %s: no columns", t.TableName)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (", t.TableName)
	if t.AutoKey {
		sb.WriteString("id INTEGER PRIMARY KEY AUTOINCREMENT,")
	}
	for i, f := range t.ColumnNames {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s %s", f.Title, f.Type)
	}
	sb.WriteByte(')')

	d.logger.Debug("create table", zap.String("sql", sb.String()))
	_, err := d.db.Exec(sb.String())
	return err
}

func (d *Sqldb) Insert(t TableData) error {
	if len(t.ColumnNames) == 0 || t.DataCount == 0 {
		return nil
	}
	titles := make([]string, len(t.ColumnNames))
	for i, f := range t.ColumnNames {
		titles[i] = f.Title
	}
	row := "(" + strings.TrimSuffix(strings.Repeat("?,", len(titles)), ",") + ")"
	rows := strings.TrimSuffix(strings.Repeat(row+",", t.DataCount), ",")

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", t.TableName, strings.Join(titles, ","), rows)
	d.logger.Debug("insert", zap.String("table", t.TableName), zap.Int("rows", t.DataCount))
	_, err := d.db.Exec(query, t.Args...)
	return err
}

// Query runs a read statement against the database.
func (d *Sqldb) Query(query string, args ...any) (*sql.Rows, error) {
	return d.db.Query(query, args...)
}

func (d *Sqldb) Close() error {
	return d.db.Close()
}
