// Package datarecording stores flat Go structs as rows of SQLite tables.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// ErrInvalidEntry is returned when an entry has fields that cannot be stored
// in a column.
var ErrInvalidEntry = errors.New("entry is invalid")

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table with columns named after the fields of
	// the sample entry. Creating an existing table is not an error.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry into a table that already exists.
	InsertData(tableName string, entry any) error

	// InsertAll buffers all the entries, or none of them if any entry is
	// rejected.
	InsertAll(entries []Entry) error

	// ListTables returns a slice containing names of all tables
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// New creates a DataRecorder that writes into a new SQLite file. The file
// name is derived from path. An empty path generates a unique name.
func New(path string) (DataRecorder, error) {
	w := NewSQLiteWriter(path)

	err := w.Init()
	if err != nil {
		return nil, err
	}

	atexit.Register(func() { _ = w.Flush() })

	return w, nil
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &SQLiteWriter{
		DB:        db,
		batchSize: defaultBatchSize,
		tables:    make(map[string]*table),
	}

	return w
}

const defaultBatchSize = 100000

// An Entry is a row bound for a table.
type Entry struct {
	Table string
	Value any
}

type table struct {
	structType reflect.Type
	entries    []any
}

// SQLiteWriter is the writer that writes data into SQLite database
type SQLiteWriter struct {
	*sql.DB

	mu         sync.Mutex
	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
}

// NewSQLiteWriter creates a writer. Init must be called before use.
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{
		dbName:    path,
		batchSize: defaultBatchSize,
		tables:    make(map[string]*table),
	}
}

// Filename returns the file that the writer writes into.
func (t *SQLiteWriter) Filename() string {
	return t.dbName + ".sqlite3"
}

// Init establishes a connection to the database.
func (t *SQLiteWriter) Init() error {
	if t.dbName == "" {
		t.dbName = "pathtrace_" + xid.New().String()
	}

	filename := t.Filename()

	_, err := os.Stat(filename)
	if err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}

	t.DB = db

	return nil
}

func isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	types := reflect.TypeOf(entry)
	if types == nil || types.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T is not a struct", ErrInvalidEntry, entry)
	}

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)

		if !field.IsExported() {
			return fmt.Errorf("%w: field %s is not exported",
				ErrInvalidEntry, field.Name)
		}

		if !isAllowedType(field.Type.Kind()) {
			return fmt.Errorf("%w: field %s has kind %s",
				ErrInvalidEntry, field.Name, field.Type.Kind())
		}
	}

	return nil
}

// CreateTable creates a table for entries shaped like sampleEntry.
func (t *SQLiteWriter) CreateTable(tableName string, sampleEntry any) error {
	if err := checkStructFields(sampleEntry); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.tables[tableName]; exists {
		return nil
	}

	n := structs.Names(sampleEntry)
	fields := strings.Join(n, ", \n\t")

	createTableSQL := `CREATE TABLE IF NOT EXISTS ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`

	if _, err := t.Exec(createTableSQL); err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}

	t.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}

	return nil
}

// InsertData buffers an entry. The buffer is flushed when it is full.
func (t *SQLiteWriter) InsertData(tableName string, entry any) error {
	return t.InsertAll([]Entry{{Table: tableName, Value: entry}})
}

// InsertAll checks every entry before buffering any of them, so a rejected
// entry leaves the buffer untouched. The buffer is flushed when it is full.
func (t *SQLiteWriter) InsertAll(entries []Entry) error {
	t.mu.Lock()

	for _, e := range entries {
		if err := t.checkEntry(e); err != nil {
			t.mu.Unlock()
			return err
		}
	}

	for _, e := range entries {
		table := t.tables[e.Table]
		table.entries = append(table.entries, e.Value)
	}

	t.entryCount += len(entries)
	full := t.entryCount >= t.batchSize

	t.mu.Unlock()

	if full {
		return t.Flush()
	}

	return nil
}

func (t *SQLiteWriter) checkEntry(e Entry) error {
	table, exists := t.tables[e.Table]
	if !exists {
		return fmt.Errorf("table %s does not exist", e.Table)
	}

	if reflect.TypeOf(e.Value) != table.structType {
		return fmt.Errorf("%w: %T does not match table %s",
			ErrInvalidEntry, e.Value, e.Table)
	}

	return nil
}

// ListTables returns the names of the tables created by the writer.
func (t *SQLiteWriter) ListTables() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	tables := make([]string, 0, len(t.tables))
	for table := range t.tables {
		tables = append(tables, table)
	}

	return tables
}

// Flush writes all buffered entries in a single transaction.
func (t *SQLiteWriter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entryCount == 0 {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	for tableName, table := range t.tables {
		if len(table.entries) == 0 {
			continue
		}

		if err := insertEntries(tx, tableName, table.entries); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	for _, table := range t.tables {
		table.entries = nil
	}

	t.entryCount = 0

	return nil
}

// Close flushes the buffered entries and closes the database.
func (t *SQLiteWriter) Close() error {
	flushErr := t.Flush()
	closeErr := t.DB.Close()

	return errors.Join(flushErr, closeErr)
}

func insertEntries(tx *sql.Tx, tableName string, entries []any) error {
	stmt, err := tx.Prepare(insertStatement(tableName, entries[0]))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", tableName, err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return fmt.Errorf("insert into %s: %w", tableName, err)
		}
	}

	return nil
}

func insertStatement(tableName string, entry any) string {
	n := structs.Names(entry)
	for i := 0; i < len(n); i++ {
		n[i] = "?"
	}

	entryToFill := "(" + strings.Join(n, ", ") + ")"

	return "INSERT INTO " + tableName + " VALUES " + entryToFill
}
