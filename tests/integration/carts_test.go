package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/safar/go-shop-store/internal/database"
	"github.com/safar/go-shop-store/internal/models"
	"github.com/safar/go-shop-store/internal/store"
)

func TestGetOrCreateCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	buyer := createTestUser(t, db, "buyer1", models.RoleBuyer)

	cart1, err := store.GetOrCreateCart(ctx, db, buyer.ID)
	if err != nil {
		t.Fatalf("Get or create cart: %v", err)
	}

	cart2, err := store.GetOrCreateCart(ctx, db, buyer.ID)
	if err != nil {
		t.Fatalf("Get or create cart again: %v", err)
	}

	if cart1.ID != cart2.ID {
		t.Errorf("Expected the same cart, got %d and %d", cart1.ID, cart2.ID)
	}

	_, err = store.GetOrCreateCart(ctx, db, 999999)
	if err != database.ErrUserNotFound {
		t.Errorf("Expected user not found, got: %v", err)
	}
}

func TestAddCartItemIncrements(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	buyer := createTestUser(t, db, "buyer2", models.RoleBuyer)
	seller := createTestUser(t, db, "seller10", models.RoleSeller)
	product := createTestProduct(t, db, seller.ID, "Widget", decimal.RequireFromString("9.99"))

	cart, err := store.GetOrCreateCart(ctx, db, buyer.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}

	first, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 1)
	if err != nil {
		t.Fatalf("Add cart item: %v", err)
	}
	if first.Quantity != 1 {
		t.Errorf("Expected quantity 1, got %d", first.Quantity)
	}
	if first.ProductName != "Widget" {
		t.Errorf("Expected product name Widget, got %s", first.ProductName)
	}

	second, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 2)
	if err != nil {
		t.Fatalf("Add cart item again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected the same line, got %d and %d", first.ID, second.ID)
	}
	if second.Quantity != 3 {
		t.Errorf("Expected quantity 3, got %d", second.Quantity)
	}

	items, err := store.ListCartItems(ctx, db, cart.ID)
	if err != nil {
		t.Fatalf("List cart items: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected 1 line, got %d", len(items))
	}
}

func TestAddCartItemValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	buyer := createTestUser(t, db, "buyer3", models.RoleBuyer)
	seller := createTestUser(t, db, "seller11", models.RoleSeller)
	product := createTestProduct(t, db, seller.ID, "Widget", decimal.RequireFromString("9.99"))

	cart, err := store.GetOrCreateCart(ctx, db, buyer.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}

	_, err = store.AddCartItem(ctx, db, cart.ID, product.ID, 0)
	if err != database.ErrInvalidQuantity {
		t.Errorf("Expected invalid quantity for 0, got: %v", err)
	}

	_, err = store.AddCartItem(ctx, db, cart.ID, product.ID, -1)
	if err != database.ErrInvalidQuantity {
		t.Errorf("Expected invalid quantity for -1, got: %v", err)
	}

	_, err = store.AddCartItem(ctx, db, cart.ID, 999999, 1)
	if err != database.ErrProductNotFound {
		t.Errorf("Expected product not found, got: %v", err)
	}

	_, err = store.AddCartItem(ctx, db, 999999, product.ID, 1)
	if err != database.ErrCartNotFound {
		t.Errorf("Expected cart not found, got: %v", err)
	}
}

func TestConcurrentAddCartItem(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	buyer := createTestUser(t, db, "buyer4", models.RoleBuyer)
	seller := createTestUser(t, db, "seller12", models.RoleSeller)
	product := createTestProduct(t, db, seller.ID, "Hot Item", decimal.RequireFromString("1.00"))

	cart, err := store.GetOrCreateCart(ctx, db, buyer.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}

	concurrency := 10
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 1)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	}

	items, err := store.ListCartItems(ctx, db, cart.ID)
	if err != nil {
		t.Fatalf("List cart items: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(items))
	}
	if items[0].Quantity != concurrency {
		t.Errorf("Expected quantity %d, got %d", concurrency, items[0].Quantity)
	}
}

func TestSetCartItemQuantity(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	buyer := createTestUser(t, db, "buyer5", models.RoleBuyer)
	seller := createTestUser(t, db, "seller13", models.RoleSeller)
	product := createTestProduct(t, db, seller.ID, "Widget", decimal.RequireFromString("9.99"))

	cart, err := store.GetOrCreateCart(ctx, db, buyer.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}

	item, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 1)
	if err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	if err := store.SetCartItemQuantity(ctx, db, cart.ID, item.ID, 5); err != nil {
		t.Fatalf("Set quantity: %v", err)
	}

	items, err := store.ListCartItems(ctx, db, cart.ID)
	if err != nil {
		t.Fatalf("List cart items: %v", err)
	}
	if items[0].Quantity != 5 {
		t.Errorf("Expected quantity 5, got %d", items[0].Quantity)
	}

	// Zero removes the line entirely.
	if err := store.SetCartItemQuantity(ctx, db, cart.ID, item.ID, 0); err != nil {
		t.Fatalf("Set quantity to 0: %v", err)
	}

	items, err = store.ListCartItems(ctx, db, cart.ID)
	if err != nil {
		t.Fatalf("List cart items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected empty cart, got %d lines", len(items))
	}

	err = store.SetCartItemQuantity(ctx, db, cart.ID, item.ID, 3)
	if err != database.ErrCartItemNotFound {
		t.Errorf("Expected cart item not found, got: %v", err)
	}
}

func TestRemoveCartItem(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	buyer := createTestUser(t, db, "buyer6", models.RoleBuyer)
	intruder := createTestUser(t, db, "buyer7", models.RoleBuyer)
	seller := createTestUser(t, db, "seller14", models.RoleSeller)
	product := createTestProduct(t, db, seller.ID, "Widget", decimal.RequireFromString("9.99"))

	cart, err := store.GetOrCreateCart(ctx, db, buyer.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}

	item, err := store.AddCartItem(ctx, db, cart.ID, product.ID, 1)
	if err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	// Another user's cart cannot touch this line.
	intruderCart, err := store.GetOrCreateCart(ctx, db, intruder.ID)
	if err != nil {
		t.Fatalf("Get intruder cart: %v", err)
	}

	err = store.RemoveCartItem(ctx, db, intruderCart.ID, item.ID)
	if err != database.ErrCartItemNotFound {
		t.Errorf("Expected cart item not found for foreign cart, got: %v", err)
	}

	if err := store.RemoveCartItem(ctx, db, cart.ID, item.ID); err != nil {
		t.Fatalf("Remove cart item: %v", err)
	}

	err = store.RemoveCartItem(ctx, db, cart.ID, item.ID)
	if err != database.ErrCartItemNotFound {
		t.Errorf("Expected cart item not found after removal, got: %v", err)
	}
}

func TestCartTotal(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	buyer := createTestUser(t, db, "buyer8", models.RoleBuyer)
	seller := createTestUser(t, db, "seller15", models.RoleSeller)
	cheap := createTestProduct(t, db, seller.ID, "Cheap", decimal.RequireFromString("2.50"))
	dear := createTestProduct(t, db, seller.ID, "Dear", decimal.RequireFromString("40.00"))

	cart, err := store.GetOrCreateCart(ctx, db, buyer.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}

	total, err := store.CartTotal(ctx, db, cart.ID)
	if err != nil {
		t.Fatalf("Cart total: %v", err)
	}
	if !total.IsZero() {
		t.Errorf("Expected empty cart total 0, got %s", total)
	}

	if _, err := store.AddCartItem(ctx, db, cart.ID, cheap.ID, 3); err != nil {
		t.Fatalf("Add cheap: %v", err)
	}
	if _, err := store.AddCartItem(ctx, db, cart.ID, dear.ID, 1); err != nil {
		t.Fatalf("Add dear: %v", err)
	}

	total, err = store.CartTotal(ctx, db, cart.ID)
	if err != nil {
		t.Fatalf("Cart total: %v", err)
	}

	expected := decimal.RequireFromString("47.50")
	if !total.Equal(expected) {
		t.Errorf("Expected total %s, got %s", expected, total)
	}
}
