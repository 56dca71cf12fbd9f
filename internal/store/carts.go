package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/safar/go-shop-store/internal/database"
	"github.com/safar/go-shop-store/internal/models"
)

// GetOrCreateCart returns the user's cart, creating it on first use. The
// unique constraint on user_id keeps concurrent callers on a single row.
func GetOrCreateCart(ctx context.Context, db *sql.DB, userID int64) (*models.Cart, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO carts (user_id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		if database.ConstraintName(err) == "carts_user_id_fkey" {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("create cart: %w", err)
	}

	cart := &models.Cart{}

	err = db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1`, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// AddCartItem adds delta units of a product to the cart. The upsert folds the
// increment into a single statement, so concurrent adds of the same product
// never lose updates.
func AddCartItem(ctx context.Context, db *sql.DB, cartID, productID int64, delta int) (*models.CartItem, error) {
	if delta < 1 {
		return nil, database.ErrInvalidQuantity
	}

	item := &models.CartItem{}

	query := `
		WITH upserted AS (
			INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
			ON CONFLICT (cart_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
			RETURNING id, cart_id, product_id, quantity, created_at, updated_at
		)
		SELECT u.id, u.cart_id, u.product_id, p.name, p.price, u.quantity, u.created_at, u.updated_at
		FROM upserted u
		JOIN products p ON p.id = u.product_id`

	err := db.QueryRowContext(ctx, query, cartID, productID, delta).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.ProductName,
		&item.UnitPrice,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		switch database.ConstraintName(err) {
		case "cart_items_cart_id_fkey":
			return nil, database.ErrCartNotFound
		case "cart_items_product_id_fkey":
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return item, nil
}

// SetCartItemQuantity replaces a line's quantity. Zero or negative removes the
// line, so a cart never carries an empty row.
func SetCartItemQuantity(ctx context.Context, db *sql.DB, cartID, itemID int64, quantity int) error {
	if quantity <= 0 {
		return RemoveCartItem(ctx, db, cartID, itemID)
	}

	result, err := db.ExecContext(ctx, `
		UPDATE cart_items
		SET quantity = $1, updated_at = NOW()
		WHERE id = $2 AND cart_id = $3`, quantity, itemID, cartID)
	if err != nil {
		return fmt.Errorf("set cart item quantity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrCartItemNotFound
	}

	return nil
}

func RemoveCartItem(ctx context.Context, db *sql.DB, cartID, itemID int64) error {
	result, err := db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrCartItemNotFound
	}

	return nil
}

// ListCartItems returns the cart's lines in insertion order, each carrying the
// product's current name and price.
func ListCartItems(ctx context.Context, db *sql.DB, cartID int64) ([]models.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.price, ci.quantity, ci.created_at, ci.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`

	rows, err := db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.ProductName,
			&item.UnitPrice,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// CartTotal sums quantity times current product price over the cart's lines.
// An empty cart totals zero.
func CartTotal(ctx context.Context, db *sql.DB, cartID int64) (decimal.Decimal, error) {
	var total decimal.Decimal

	query := `
		SELECT COALESCE(SUM(p.price * ci.quantity), 0)
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1`

	err := db.QueryRowContext(ctx, query, cartID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cart total: %w", err)
	}

	return total, nil
}

// clearCartItems empties a cart inside a transaction. Cart rows themselves are
// never deleted; emptying the lines is the only cascade the schema allows, and
// it happens here explicitly rather than through referential actions.
func clearCartItems(ctx context.Context, tx *sql.Tx, cartID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	return nil
}
