package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-shop-store/internal/database"
	"github.com/safar/go-shop-store/internal/models"
)

// GetOrCreateWishlist returns the user's wishlist, creating it on first use.
func GetOrCreateWishlist(ctx context.Context, db *sql.DB, userID int64) (*models.Wishlist, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO wishlists (user_id, created_at)
		VALUES ($1, NOW())
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		if database.ConstraintName(err) == "wishlists_user_id_fkey" {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("create wishlist: %w", err)
	}

	wishlist := &models.Wishlist{}

	err = db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at
		FROM wishlists
		WHERE user_id = $1`, userID).Scan(
		&wishlist.ID,
		&wishlist.UserID,
		&wishlist.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}

	return wishlist, nil
}

// AddWishlistItem saves a product to the wishlist. Unlike carts there is no
// quantity; adding a product already on the list returns the existing entry.
func AddWishlistItem(ctx context.Context, db *sql.DB, wishlistID, productID int64) (*models.WishlistItem, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO wishlist_items (wishlist_id, product_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (wishlist_id, product_id) DO NOTHING`, wishlistID, productID)
	if err != nil {
		switch database.ConstraintName(err) {
		case "wishlist_items_wishlist_id_fkey":
			return nil, database.ErrWishlistNotFound
		case "wishlist_items_product_id_fkey":
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("add wishlist item: %w", err)
	}

	item := &models.WishlistItem{}

	query := `
		SELECT wi.id, wi.wishlist_id, wi.product_id, p.name, p.price, wi.created_at
		FROM wishlist_items wi
		JOIN products p ON p.id = wi.product_id
		WHERE wi.wishlist_id = $1 AND wi.product_id = $2`

	err = db.QueryRowContext(ctx, query, wishlistID, productID).Scan(
		&item.ID,
		&item.WishlistID,
		&item.ProductID,
		&item.ProductName,
		&item.UnitPrice,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get wishlist item: %w", err)
	}

	return item, nil
}

func RemoveWishlistItem(ctx context.Context, db *sql.DB, wishlistID, itemID int64) error {
	result, err := db.ExecContext(ctx, `
		DELETE FROM wishlist_items
		WHERE id = $1 AND wishlist_id = $2`, itemID, wishlistID)
	if err != nil {
		return fmt.Errorf("remove wishlist item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrWishlistItemNotFound
	}

	return nil
}

func ListWishlistItems(ctx context.Context, db *sql.DB, wishlistID int64) ([]models.WishlistItem, error) {
	query := `
		SELECT wi.id, wi.wishlist_id, wi.product_id, p.name, p.price, wi.created_at
		FROM wishlist_items wi
		JOIN products p ON p.id = wi.product_id
		WHERE wi.wishlist_id = $1
		ORDER BY wi.id`

	rows, err := db.QueryContext(ctx, query, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist items: %w", err)
	}
	defer rows.Close()

	var items []models.WishlistItem
	for rows.Next() {
		var item models.WishlistItem
		err := rows.Scan(
			&item.ID,
			&item.WishlistID,
			&item.ProductID,
			&item.ProductName,
			&item.UnitPrice,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// MoveWishlistItemToCart transfers a wishlist entry into the user's cart as one
// unit, in a single transaction. The delete doubles as the ownership check: it
// only matches an item on a wishlist belonging to userID. If the product is
// already in the cart its quantity goes up by one.
func MoveWishlistItemToCart(ctx context.Context, db *sql.DB, userID, itemID int64) (*models.CartItem, error) {
	item := &models.CartItem{}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var productID int64
		err := tx.QueryRowContext(ctx, `
			DELETE FROM wishlist_items wi
			USING wishlists w
			WHERE wi.id = $1 AND wi.wishlist_id = w.id AND w.user_id = $2
			RETURNING wi.product_id`, itemID, userID).Scan(&productID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrWishlistItemNotFound
			}
			return fmt.Errorf("claim wishlist item: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO carts (user_id, created_at, updated_at)
			VALUES ($1, NOW(), NOW())
			ON CONFLICT (user_id) DO NOTHING`, userID)
		if err != nil {
			return fmt.Errorf("create cart: %w", err)
		}

		var cartID int64
		err = tx.QueryRowContext(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
		if err != nil {
			return fmt.Errorf("get cart: %w", err)
		}

		query := `
			WITH upserted AS (
				INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
				VALUES ($1, $2, 1, NOW(), NOW())
				ON CONFLICT (cart_id, product_id)
				DO UPDATE SET quantity = cart_items.quantity + 1, updated_at = NOW()
				RETURNING id, cart_id, product_id, quantity, created_at, updated_at
			)
			SELECT u.id, u.cart_id, u.product_id, p.name, p.price, u.quantity, u.created_at, u.updated_at
			FROM upserted u
			JOIN products p ON p.id = u.product_id`

		err = tx.QueryRowContext(ctx, query, cartID, productID).Scan(
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
			return fmt.Errorf("add cart item: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}
