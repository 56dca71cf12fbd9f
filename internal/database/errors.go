package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation (code 23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ConstraintName returns the constraint behind a Postgres integrity error,
// or "" if err carries none. Stores use it to map FK violations back to the
// entity that is actually missing.
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrInvalidRole          = errors.New("invalid role")
	ErrShopNotFound         = errors.New("shop not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrInvalidPrice         = errors.New("price must be greater than 0")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrCartNotFound         = errors.New("cart not found")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrWishlistNotFound     = errors.New("wishlist not found")
	ErrWishlistItemNotFound = errors.New("wishlist item not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidOrderStatus   = errors.New("invalid order status")
)
