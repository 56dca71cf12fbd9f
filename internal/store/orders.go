package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safar/go-shop-store/internal/database"
	"github.com/safar/go-shop-store/internal/models"
)

type CheckoutRequest struct {
	UserID  int64
	Address string
}

type cartLine struct {
	productID int64
	quantity  int
	price     decimal.Decimal
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), uuid.NewString())
}

// Checkout converts the user's cart into an order. The whole conversion runs
// in one serializable transaction: read the cart lines with their current
// prices, write the order and its items, empty the cart. Either all of it
// commits or none of it does, and the prices written to order_items are the
// product prices at the moment the transaction committed.
func Checkout(ctx context.Context, db *sql.DB, req CheckoutRequest) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)",
			req.UserID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}
		if !exists {
			return database.ErrUserNotFound
		}

		var cartID int64
		err = tx.QueryRowContext(ctx, `SELECT id FROM carts WHERE user_id = $1`, req.UserID).Scan(&cartID)
		if err != nil {
			if err == sql.ErrNoRows {
				// A user without a cart has nothing to buy.
				return database.ErrEmptyCart
			}
			return fmt.Errorf("get cart: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT ci.product_id, ci.quantity, p.price
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.cart_id = $1
			ORDER BY ci.id`, cartID)
		if err != nil {
			return fmt.Errorf("read cart lines: %w", err)
		}
		defer rows.Close()

		var lines []cartLine
		for rows.Next() {
			var line cartLine
			if err := rows.Scan(&line.productID, &line.quantity, &line.price); err != nil {
				return fmt.Errorf("scan cart line: %w", err)
			}
			lines = append(lines, line)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		if len(lines) == 0 {
			return database.ErrEmptyCart
		}

		var totalAmount decimal.Decimal
		for _, line := range lines {
			totalAmount = totalAmount.Add(line.price.Mul(decimal.NewFromInt(int64(line.quantity))))
		}

		order = &models.Order{}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, order_number, address, status, total_amount, created_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 RETURNING id, user_id, order_number, address, status, total_amount, created_at`,
			req.UserID, generateOrderNumber(), req.Address, models.OrderStatusPending, totalAmount).Scan(
			&order.ID,
			&order.UserID,
			&order.OrderNumber,
			&order.Address,
			&order.Status,
			&order.TotalAmount,
			&order.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, line := range lines {
			var item models.OrderItem
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, price, created_at)
				 VALUES ($1, $2, $3, $4, NOW())
				 RETURNING id, order_id, product_id, quantity, price, created_at`,
				order.ID, line.productID, line.quantity, line.price).Scan(
				&item.ID,
				&item.OrderID,
				&item.ProductID,
				&item.Quantity,
				&item.Price,
				&item.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			order.Items = append(order.Items, item)
		}

		return clearCartItems(ctx, tx, cartID)
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrder fetches one of the user's orders with its items. Another user's
// order looks the same as a missing one.
func GetOrder(ctx context.Context, db *sql.DB, userID, orderID int64) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT id, user_id, order_number, address, status, total_amount, created_at
		FROM orders
		WHERE id = $1 AND user_id = $2`

	err := db.QueryRowContext(ctx, query, orderID, userID).Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.Address,
		&order.Status,
		&order.TotalAmount,
		&order.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := db.QueryContext(ctx, itemsQuery, order.ID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	order.Items = items

	return order, nil
}

// ListOrdersCursor pages through a user's order history, newest first.
func ListOrdersCursor(ctx context.Context, db *sql.DB, userID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT id, user_id, order_number, address, status, total_amount, created_at
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.OrderNumber,
			&order.Address,
			&order.Status,
			&order.TotalAmount,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateOrderStatus moves an order to a new status. The status must be one of
// the known values; storage does not enforce a progression between them.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, orderID int64, status string) error {
	switch status {
	case models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled:
	default:
		return database.ErrInvalidOrderStatus
	}

	result, err := db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1
		WHERE id = $2`, status, orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}
