package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"sql-helper/internal/config"
	"sql-helper/internal/pkg/errors"
	"sql-helper/internal/sqlfmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type QueryResult struct {
	Columns   []string                 `json:"columns"`
	Rows      []map[string]interface{} `json:"rows"`
	Truncated bool                     `json:"truncated"`
}

type SQLService interface {
	Format(query, dialect string) (string, error)
	Execute(ctx context.Context, query string) (*QueryResult, error)
}

type sqlService struct {
	db      *sqlx.DB
	maxRows int
	timeout time.Duration
}

// NewSQLService wires the static formatter and the SELECT runner. db may be
// nil when execution is disabled.
func NewSQLService(db *sqlx.DB, cfg config.ExecuteConfig) SQLService {
	return &sqlService{db: db, maxRows: cfg.MaxRows, timeout: cfg.Timeout}
}

// OpenExecuteDB connects the SELECT runner's pool through lib/pq.
func OpenExecuteDB(cfg config.ExecuteConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect execute database")
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func (s *sqlService) Format(query, dialect string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "SQL query is required")
	}
	if dialect == "" {
		dialect = sqlfmt.DefaultDialect
	}
	if !sqlfmt.SupportedDialect(dialect) {
		return "", errors.Wrap(errors.ErrInvalidInput, "unsupported dialect: "+dialect)
	}
	return sqlfmt.Format(query, sqlfmt.Options{Dialect: dialect, KeywordCase: sqlfmt.KeywordUpper}), nil
}

// IsSelectQuery accepts statements whose first word is SELECT, in any case.
func IsSelectQuery(query string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(query)), "select")
}

// Execute runs the query inside a read-only transaction that is always
// rolled back.
func (s *sqlService) Execute(ctx context.Context, query string) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "SQL query is required")
	}
	if !IsSelectQuery(query) {
		return nil, errors.ErrNotSelectQuery
	}
	if s.db == nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "query execution is not configured")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, errors.Unavailable(err, "failed to begin read-only transaction")
	}
	defer tx.Rollback()

	rows, err := tx.QueryxContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read columns")
	}

	result := &QueryResult{Columns: columns, Rows: []map[string]interface{}{}}
	for rows.Next() {
		if s.maxRows > 0 && len(result.Rows) >= s.maxRows {
			result.Truncated = true
			break
		}
		row := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	return result, nil
}
