package channels

import (
	"context"
	"database/sql"
	"errors"
)

// RowQuerier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type RowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLAddressBook looks addresses up with a query taking the user id as its
// only argument and returning the email and language columns.
type SQLAddressBook struct {
	db    RowQuerier
	query string
}

// DefaultAddressQuery reads the address from a Django style auth_user table.
const DefaultAddressQuery = "SELECT email, '' FROM auth_user WHERE id = $1 AND is_active"

// NewSQLAddressBook returns an address book running query, or
// DefaultAddressQuery when it is empty.
func NewSQLAddressBook(db RowQuerier, query string) *SQLAddressBook {
	if query == "" {
		query = DefaultAddressQuery
	}
	return &SQLAddressBook{db: db, query: query}
}

func (b *SQLAddressBook) Lookup(ctx context.Context, userID int64) (Address, error) {
	var (
		addr Address
		lang sql.NullString
	)
	err := b.db.QueryRowContext(ctx, b.query, userID).Scan(&addr.Email, &lang)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Address{}, ErrNoAddress
	case err != nil:
		return Address{}, err
	}
	addr.Language = lang.String
	return addr, nil
}
