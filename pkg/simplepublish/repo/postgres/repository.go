package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplepublish.TxRunner using PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside BEGIN/COMMIT. Any error from fn rolls back.
func (r *Repository) WithTx(ctx context.Context, fn func(tx simplepublish.Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return handlePostgresError("begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(NewStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return handlePostgresError("commit transaction", err)
	}
	return nil
}

// Store binds the repositories to one connection or transaction.
type Store struct {
	db DBTX
}

// NewStore wraps db. Callers that manage their own transaction can pass a
// pgx.Tx directly.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Organizations() simplepublish.OrganizationRepository { return organizationRepo{s.db} }
func (s *Store) MediaItems() simplepublish.MediaRepository           { return mediaRepo{s.db} }
func (s *Store) Contents() simplepublish.ContentRepository           { return contentRepo{s.db} }

// notDeleted is the single soft-delete predicate for every read path.
func notDeleted(alias string) string {
	if alias == "" {
		return "deleted_at IS NULL"
	}
	return alias + ".deleted_at IS NULL"
}

// handlePostgresError maps driver failures onto repository sentinels.
func handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return simplepublish.ErrRecordNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %s: %w", operation, pgErr.ConstraintName, simplepublish.ErrDuplicateKey)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: referenced record not found: %w", operation, simplepublish.ErrRecordNotFound)
		case "22001": // string_data_right_truncation
			return fmt.Errorf("%s: %w", operation, simplepublish.ErrValueTooLong)
		case "23502": // not_null_violation
			return fmt.Errorf("%s: required field %s is missing", operation, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("%s: table does not exist - database migration required", operation)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// listQuery accumulates a dynamic WHERE clause with positional arguments.
type listQuery struct {
	where []string
	args  []interface{}
}

func newListQuery(alias string) *listQuery {
	return &listQuery{where: []string{notDeleted(alias)}}
}

// add appends a condition whose single placeholder is written as %d.
func (q *listQuery) add(cond string, arg interface{}) {
	q.args = append(q.args, arg)
	q.where = append(q.where, fmt.Sprintf(cond, len(q.args)))
}

// search matches the term case-insensitively against every column.
func (q *listQuery) search(term string, columns ...string) {
	q.args = append(q.args, "%"+escapeLike(term)+"%")
	n := len(q.args)
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", col, n)
	}
	q.where = append(q.where, "("+strings.Join(parts, " OR ")+")")
}

func (q *listQuery) clause() string {
	return " WHERE " + strings.Join(q.where, " AND ")
}

// page appends ORDER BY, LIMIT and OFFSET. column must come from a whitelist.
func (q *listQuery) page(column, order string, nullsLast bool, limit, offset int) string {
	dir := "DESC"
	if order == "asc" {
		dir = "ASC"
	}
	nulls := ""
	if nullsLast {
		nulls = " NULLS LAST"
	}
	s := fmt.Sprintf(" ORDER BY %s %s%s, id %s", column, dir, nulls, dir)
	if limit > 0 {
		q.args = append(q.args, limit)
		s += fmt.Sprintf(" LIMIT $%d", len(q.args))
	}
	if offset > 0 {
		q.args = append(q.args, offset)
		s += fmt.Sprintf(" OFFSET $%d", len(q.args))
	}
	return s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// count runs a COUNT(*) over table with the accumulated filters.
func count(ctx context.Context, db DBTX, operation, table string, q *listQuery) (int64, error) {
	var total int64
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+q.clause(), q.args...).Scan(&total); err != nil {
		return 0, handlePostgresError(operation, err)
	}
	return total, nil
}

// nullString maps the empty string to NULL for optional text columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
