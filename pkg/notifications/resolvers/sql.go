package resolvers

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrymomot/notifycore/pkg/notifications"
)

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLResolver runs a query selecting a single user id column and streams the
// rows back through a notifications.Cursor.
//
//	resolvers.NewSQLResolver(db,
//	    "SELECT user_id FROM enrollments WHERE course_id = $1 AND is_active",
//	    "course_id")
//
// Each param names a scope context key bound positionally to the query.
// Keys missing from the scope context are read from the instance context.
type SQLResolver struct {
	db     Querier
	query  string
	params []string
}

// NewSQLResolver returns a resolver for query.
func NewSQLResolver(db Querier, query string, params ...string) *SQLResolver {
	return &SQLResolver{db: db, query: query, params: params}
}

// Resolve implements notifications.ScopeResolver.
func (r *SQLResolver) Resolve(ctx context.Context, _ string, scopeContext, instanceContext map[string]any) (any, error) {
	args, err := lookupAll(r.params, scopeContext, instanceContext)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, r.query, args...)
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	return &rowsCursor{rows: rows}, nil
}

// rowsCursor adapts *sql.Rows to notifications.Cursor.
type rowsCursor struct {
	rows *sql.Rows
	val  any
	err  error
}

var _ notifications.Cursor = (*rowsCursor)(nil)

func (c *rowsCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if !c.rows.Next() {
		return false
	}
	var v any
	if err := c.rows.Scan(&v); err != nil {
		c.err = err
		return false
	}
	c.val = v
	if b, ok := v.([]byte); ok {
		// text protocol drivers return integers as bytes
		c.val = parseID(string(b))
	}
	return true
}

func (c *rowsCursor) Value() any { return c.val }

func (c *rowsCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *rowsCursor) Close() error { return c.rows.Close() }
