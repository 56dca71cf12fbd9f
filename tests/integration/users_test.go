package integration

import (
	"context"
	"testing"

	"github.com/safar/go-shop-store/internal/database"
	"github.com/safar/go-shop-store/internal/models"
	"github.com/safar/go-shop-store/internal/store"
)

func TestSignupBuyer(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user, err := store.CreateUser(ctx, db, store.CreateUserRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
		Role:     models.RoleBuyer,
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	if user.ID == 0 {
		t.Error("User ID should not be 0")
	}
	if user.Role != models.RoleBuyer {
		t.Errorf("Expected role buyer, got %s", user.Role)
	}
	if user.PasswordHash == "secret123" {
		t.Error("Password should not be stored in plaintext")
	}

	_, err = store.GetShopByOwner(ctx, db, user.ID)
	if err != database.ErrShopNotFound {
		t.Errorf("Buyer should not have a shop, got: %v", err)
	}
}

func TestSignupSellerCreatesShop(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user, err := store.CreateUser(ctx, db, store.CreateUserRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "secret123",
		Role:     models.RoleSeller,
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	shop, err := store.GetShopByOwner(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("Get shop: %v", err)
	}

	if shop.Name != "bob's Shop" {
		t.Errorf("Expected shop name \"bob's Shop\", got %q", shop.Name)
	}
	if shop.OwnerID != user.ID {
		t.Errorf("Expected shop owner %d, got %d", user.ID, shop.OwnerID)
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	first := createTestUser(t, db, "dave", models.RoleBuyer)

	_, err := store.CreateUser(ctx, db, store.CreateUserRequest{
		Username: "dave",
		Email:    "other@example.com",
		Password: "secret123",
		Role:     models.RoleSeller,
	})
	if err != database.ErrUsernameTaken {
		t.Errorf("Expected username taken error, got: %v", err)
	}

	// The failed seller signup must not leave a shop behind.
	_, err = store.GetShopByOwner(ctx, db, first.ID)
	if err != database.ErrShopNotFound {
		t.Errorf("Expected no shop after failed signup, got: %v", err)
	}
}

func TestSignupInvalidRole(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := store.CreateUser(ctx, db, store.CreateUserRequest{
		Username: "mallory",
		Email:    "mallory@example.com",
		Password: "secret123",
		Role:     "admin",
	})
	if err != database.ErrInvalidRole {
		t.Errorf("Expected invalid role error, got: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	created := createTestUser(t, db, "carol", models.RoleBuyer)

	user, err := store.Authenticate(ctx, db, "carol", "password123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("Expected user %d, got %d", created.ID, user.ID)
	}

	_, err = store.Authenticate(ctx, db, "carol", "wrongpass")
	if err != database.ErrInvalidCredentials {
		t.Errorf("Expected invalid credentials for wrong password, got: %v", err)
	}

	_, err = store.Authenticate(ctx, db, "nobody", "password123")
	if err != database.ErrInvalidCredentials {
		t.Errorf("Expected invalid credentials for unknown user, got: %v", err)
	}
}

func TestGetUser(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	created := createTestUser(t, db, "erin", models.RoleSeller)

	user, err := store.GetUser(ctx, db, created.ID)
	if err != nil {
		t.Fatalf("Get user: %v", err)
	}
	if user.Username != "erin" {
		t.Errorf("Expected username erin, got %s", user.Username)
	}

	_, err = store.GetUser(ctx, db, 999999)
	if err != database.ErrUserNotFound {
		t.Errorf("Expected user not found, got: %v", err)
	}
}
