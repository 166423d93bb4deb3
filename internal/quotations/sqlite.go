// Package quotations reads market price quotations from the project's
// SQLite database.
//
// Two tables are used: validacoes_cot maps a budget item index (po_item) to
// a quotation code, and cotacoes_aba holds the quoted description and
// material price per code.
package quotations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"pricingcli/internal/dataprocessing"
	"pricingcli/pkg/contracts/domain"
)

// ErrDatabaseMissing is returned when the database file does not exist
var ErrDatabaseMissing = errors.New("quotation database not found")

type quote struct {
	description string
	price       float64
}

// Store is an in-memory snapshot of the quotation tables
type Store struct {
	mapping map[string]string
	quotes  map[string]quote
}

// NewStore builds a store from already loaded maps; used by tests and by
// callers that have no database.
func NewStore() *Store {
	return &Store{
		mapping: make(map[string]string),
		quotes:  make(map[string]quote),
	}
}

// Map links a budget item index to a quotation code
func (s *Store) Map(itemIndex, code string) {
	s.mapping[strings.TrimSpace(itemIndex)] = code
}

// Put records a quotation
func (s *Store) Put(code, description string, price float64) {
	s.quotes[code] = quote{description: description, price: price}
}

// Quotation returns the quotation mapped to a budget item index
func (s *Store) Quotation(itemIndex string) (domain.Quotation, bool) {
	if s == nil {
		return domain.Quotation{}, false
	}
	code, ok := s.mapping[strings.TrimSpace(itemIndex)]
	if !ok {
		return domain.Quotation{}, false
	}
	q, ok := s.quotes[code]
	if !ok {
		return domain.Quotation{}, false
	}
	return domain.Quotation{
		ItemIndex:   itemIndex,
		Code:        code,
		Description: q.description,
		Price:       q.price,
	}, true
}

// Len returns the number of mapped item indexes
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.mapping)
}

// Load reads both quotation tables. Later rows win when an index or a code
// repeats.
func Load(ctx context.Context, dbPath string) (*Store, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	store := NewStore()

	rows, err := db.QueryContext(ctx, "SELECT po_item, codigo FROM validacoes_cot")
	if err != nil {
		return nil, fmt.Errorf("query validacoes_cot: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var index, code sql.NullString
		if err := rows.Scan(&index, &code); err != nil {
			return nil, fmt.Errorf("scan validacoes_cot: %w", err)
		}
		c, ok := dataprocessing.Normalize(code.String)
		if !index.Valid || !ok {
			continue
		}
		store.Map(index.String, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read validacoes_cot: %w", err)
	}

	priced, err := db.QueryContext(ctx, "SELECT codigo, descricao, valor_material FROM cotacoes_aba")
	if err != nil {
		return nil, fmt.Errorf("query cotacoes_aba: %w", err)
	}
	defer func() { _ = priced.Close() }()
	for priced.Next() {
		var code, desc, value sql.NullString
		if err := priced.Scan(&code, &desc, &value); err != nil {
			return nil, fmt.Errorf("scan cotacoes_aba: %w", err)
		}
		c, ok := dataprocessing.Normalize(code.String)
		if !ok {
			continue
		}
		store.Put(c, strings.TrimSpace(desc.String), dataprocessing.ParseFloat(value.String))
	}
	if err := priced.Err(); err != nil {
		return nil, fmt.Errorf("read cotacoes_aba: %w", err)
	}

	slog.Info("Quotations loaded",
		slog.String("path", dbPath),
		slog.Int("mapped_items", len(store.mapping)),
		slog.Int("quotations", len(store.quotes)))

	return store, nil
}

// Column describes one table column
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableSchema describes one table
type TableSchema struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// InspectSchema lists every table of the database with its columns
func InspectSchema(ctx context.Context, dbPath string) ([]TableSchema, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	schemas := make([]TableSchema, 0, len(names))
	for _, name := range names {
		cols, err := tableColumns(ctx, db, name)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, TableSchema{Name: name, Columns: cols})
	}
	return schemas, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	quoted := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoted+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		cols = append(cols, Column{Name: name, Type: typ})
	}
	return cols, rows.Err()
}

func open(dbPath string) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", dbPath, ErrDatabaseMissing)
		}
		return nil, fmt.Errorf("stat sqlite %s: %w", dbPath, err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	return db, nil
}
