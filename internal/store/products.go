package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/safar/go-shop-store/internal/database"
	"github.com/safar/go-shop-store/internal/models"
)

// defaultProductImage is used when a product is created without an image URL.
const defaultProductImage = "https://via.placeholder.com/150"

type CreateProductRequest struct {
	SellerID    int64
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
}

type UpdateProductRequest struct {
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
}

// CreateProduct inserts a product owned by the given seller. The seller's shop
// is attached to the product, created on first use if signup did not create it.
func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	if !req.Price.IsPositive() {
		return nil, database.ErrInvalidPrice
	}
	if req.ImageURL == "" {
		req.ImageURL = defaultProductImage
	}

	product := &models.Product{}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var username, role string
		err := tx.QueryRowContext(ctx, `SELECT username, role FROM users WHERE id = $1`, req.SellerID).Scan(&username, &role)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrUserNotFound
			}
			return fmt.Errorf("get seller: %w", err)
		}

		var shopID *int64
		if role == models.RoleSeller {
			shop, err := ensureShop(ctx, tx, fmt.Sprintf("%s's Shop", username), req.SellerID)
			if err != nil {
				return err
			}
			shopID = &shop.ID
		}

		query := `
			INSERT INTO products (name, description, price, image_url, seller_id, shop_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING id, name, description, price, image_url, seller_id, shop_id, created_at, updated_at`

		err = tx.QueryRowContext(ctx, query, req.Name, req.Description, req.Price, req.ImageURL, req.SellerID, shopID).Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.ImageURL,
			&product.SellerID,
			&product.ShopID,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

// UpdateProduct modifies a product the seller owns. A product that does not
// exist and a product owned by someone else are indistinguishable to the caller.
func UpdateProduct(ctx context.Context, db *sql.DB, productID, sellerID int64, req UpdateProductRequest) (*models.Product, error) {
	if !req.Price.IsPositive() {
		return nil, database.ErrInvalidPrice
	}
	if req.ImageURL == "" {
		req.ImageURL = defaultProductImage
	}

	product := &models.Product{}

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, image_url = $4, updated_at = NOW()
		WHERE id = $5 AND seller_id = $6
		RETURNING id, name, description, price, image_url, seller_id, shop_id, created_at, updated_at`

	err := db.QueryRowContext(ctx, query, req.Name, req.Description, req.Price, req.ImageURL, productID, sellerID).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&product.SellerID,
		&product.ShopID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, name, description, price, image_url, seller_id, shop_id, created_at, updated_at
		FROM products
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&product.SellerID,
		&product.ShopID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// ListProducts pages through the catalog. sortKey "price" orders by ascending
// price; anything else falls back to name. The id tie-break keeps page
// boundaries stable between requests.
func ListProducts(ctx context.Context, db *sql.DB, sortKey string, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	orderBy := "name ASC, id ASC"
	if sortKey == "price" {
		orderBy = "price ASC, id ASC"
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT id, name, description, price, image_url, seller_id, shop_id, created_at, updated_at
		FROM products
		ORDER BY %s
		LIMIT $1 OFFSET $2`, orderBy)

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.ImageURL,
			&product.SellerID,
			&product.ShopID,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// ListSellerProducts returns everything a seller has listed, newest first.
func ListSellerProducts(ctx context.Context, db *sql.DB, sellerID int64) ([]models.Product, error) {
	query := `
		SELECT id, name, description, price, image_url, seller_id, shop_id, created_at, updated_at
		FROM products
		WHERE seller_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list seller products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.ImageURL,
			&product.SellerID,
			&product.ShopID,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
