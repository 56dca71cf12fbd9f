package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-shop-store/internal/database"
	"github.com/safar/go-shop-store/internal/models"
)

func GetShopByOwner(ctx context.Context, db *sql.DB, ownerID int64) (*models.Shop, error) {
	shop := &models.Shop{}

	query := `
		SELECT id, name, owner_id, created_at
		FROM shops
		WHERE owner_id = $1`

	err := db.QueryRowContext(ctx, query, ownerID).Scan(
		&shop.ID,
		&shop.Name,
		&shop.OwnerID,
		&shop.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrShopNotFound
		}
		return nil, fmt.Errorf("get shop by owner: %w", err)
	}

	return shop, nil
}

// ensureShop returns the owner's shop, creating it if missing. The unique
// constraint on owner_id makes concurrent callers converge on a single row.
func ensureShop(ctx context.Context, tx *sql.Tx, name string, ownerID int64) (*models.Shop, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO shops (name, owner_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (owner_id) DO NOTHING`, name, ownerID)
	if err != nil {
		return nil, fmt.Errorf("create shop: %w", err)
	}

	shop := &models.Shop{}

	err = tx.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at
		FROM shops
		WHERE owner_id = $1`, ownerID).Scan(
		&shop.ID,
		&shop.Name,
		&shop.OwnerID,
		&shop.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}

	return shop, nil
}
