package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/safar/go-shop-store/internal/database"
	"github.com/safar/go-shop-store/internal/models"
	"github.com/safar/go-shop-store/internal/store"
)

func handleSignup(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "Username and password are required")
			return
		}

		user, err := store.CreateUser(ctx, db, store.CreateUserRequest{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			Role:     req.Role,
		})
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, user)
	}
}

func handleLogin(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := store.Authenticate(ctx, db, req.Username, req.Password)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, user)
	}
}

func handleUserByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		idStr := r.URL.Path[len("/users/"):]
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}

		user, err := store.GetUser(ctx, db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, user)
	}
}

func handleProducts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				SellerID    int64   `json:"seller_id"`
				Name        string  `json:"name"`
				Description string  `json:"description"`
				Price       float64 `json:"price"`
				ImageURL    string  `json:"image_url"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			if req.Name == "" {
				respondError(w, http.StatusBadRequest, "Product name is required")
				return
			}

			if !requireSeller(w, r, db, req.SellerID) {
				return
			}

			product, err := store.CreateProduct(ctx, db, store.CreateProductRequest{
				SellerID:    req.SellerID,
				Name:        req.Name,
				Description: req.Description,
				Price:       decimal.NewFromFloat(req.Price),
				ImageURL:    req.ImageURL,
			})
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, product)

		case http.MethodGet:
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			if page < 1 {
				page = 1
			}
			pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
			if pageSize < 1 || pageSize > 100 {
				pageSize = 20
			}

			result, err := store.ListProducts(ctx, db, r.URL.Query().Get("sort"), page, pageSize)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleProductByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		idStr := r.URL.Path[len("/products/"):]
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			product, err := store.GetProduct(ctx, db, id)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, product)

		case http.MethodPut:
			var req struct {
				SellerID    int64   `json:"seller_id"`
				Name        string  `json:"name"`
				Description string  `json:"description"`
				Price       float64 `json:"price"`
				ImageURL    string  `json:"image_url"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			if !requireSeller(w, r, db, req.SellerID) {
				return
			}

			product, err := store.UpdateProduct(ctx, db, id, req.SellerID, store.UpdateProductRequest{
				Name:        req.Name,
				Description: req.Description,
				Price:       decimal.NewFromFloat(req.Price),
				ImageURL:    req.ImageURL,
			})
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, product)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleDashboard(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		sellerID, err := strconv.ParseInt(r.URL.Query().Get("seller_id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid seller ID")
			return
		}

		if !requireSeller(w, r, db, sellerID) {
			return
		}

		shop, err := store.GetShopByOwner(ctx, db, sellerID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		products, err := store.ListSellerProducts(ctx, db, sellerID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"shop":     shop,
			"products": products,
		})
	}
}

func handleCart(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}

		cart, err := store.GetOrCreateCart(ctx, db, userID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		items, err := store.ListCartItems(ctx, db, cart.ID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		total, err := store.CartTotal(ctx, db, cart.ID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"cart":  cart,
			"items": items,
			"total": total,
		})
	}
}

func handleCartItems(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			UserID    int64 `json:"user_id"`
			ProductID int64 `json:"product_id"`
			Quantity  int   `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Quantity == 0 {
			req.Quantity = 1
		}

		cart, err := store.GetOrCreateCart(ctx, db, req.UserID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		item, err := store.AddCartItem(ctx, db, cart.ID, req.ProductID, req.Quantity)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, item)
	}
}

func handleCartItemByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		idStr := r.URL.Path[len("/cart/items/"):]
		itemID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid cart item ID")
			return
		}

		switch r.Method {
		case http.MethodPut:
			var req struct {
				UserID   int64 `json:"user_id"`
				Quantity int   `json:"quantity"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			cart, err := store.GetOrCreateCart(ctx, db, req.UserID)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			if err := store.SetCartItemQuantity(ctx, db, cart.ID, itemID, req.Quantity); err != nil {
				respondStoreError(w, err)
				return
			}

			w.WriteHeader(http.StatusNoContent)

		case http.MethodDelete:
			userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid user ID")
				return
			}

			cart, err := store.GetOrCreateCart(ctx, db, userID)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			if err := store.RemoveCartItem(ctx, db, cart.ID, itemID); err != nil {
				respondStoreError(w, err)
				return
			}

			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleWishlist(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}

		wishlist, err := store.GetOrCreateWishlist(ctx, db, userID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		items, err := store.ListWishlistItems(ctx, db, wishlist.ID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"wishlist": wishlist,
			"items":    items,
		})
	}
}

func handleWishlistItems(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			UserID    int64 `json:"user_id"`
			ProductID int64 `json:"product_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		wishlist, err := store.GetOrCreateWishlist(ctx, db, req.UserID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		item, err := store.AddWishlistItem(ctx, db, wishlist.ID, req.ProductID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, item)
	}
}

func handleWishlistItemByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodDelete {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		idStr := r.URL.Path[len("/wishlist/items/"):]
		itemID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid wishlist item ID")
			return
		}

		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}

		wishlist, err := store.GetOrCreateWishlist(ctx, db, userID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		if err := store.RemoveWishlistItem(ctx, db, wishlist.ID, itemID); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleWishlistMove(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			UserID int64 `json:"user_id"`
			ItemID int64 `json:"item_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		item, err := store.MoveWishlistItemToCart(ctx, db, req.UserID, req.ItemID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, item)
	}
}

func handleCheckout(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			UserID  int64  `json:"user_id"`
			Address string `json:"address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Address = strings.TrimSpace(req.Address)
		if req.Address == "" {
			respondError(w, http.StatusBadRequest, "Shipping address is required")
			return
		}

		order, err := store.Checkout(ctx, db, store.CheckoutRequest{
			UserID:  req.UserID,
			Address: req.Address,
		})
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, order)
	}
}

func handleOrders(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		result, err := store.ListOrdersCursor(ctx, db, userID, r.URL.Query().Get("cursor"), limit)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleOrderByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		idStr := r.URL.Path[len("/orders/"):]
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid user ID")
				return
			}

			order, err := store.GetOrder(ctx, db, userID, id)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, order)

		case http.MethodPut:
			var req struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			if err := store.UpdateOrderStatus(ctx, db, id, req.Status); err != nil {
				respondStoreError(w, err)
				return
			}

			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// requireSeller loads the user and rejects the request unless they hold the
// seller role. It writes the response itself and reports whether to continue.
func requireSeller(w http.ResponseWriter, r *http.Request, db *sql.DB, userID int64) bool {
	user, err := store.GetUser(r.Context(), db, userID)
	if err != nil {
		respondStoreError(w, err)
		return false
	}
	if user.Role != models.RoleSeller {
		respondError(w, http.StatusForbidden, "Seller account required")
		return false
	}
	return true
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrShopNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrCartNotFound),
		errors.Is(err, database.ErrCartItemNotFound),
		errors.Is(err, database.ErrWishlistNotFound),
		errors.Is(err, database.ErrWishlistItemNotFound),
		errors.Is(err, database.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrUsernameTaken),
		errors.Is(err, database.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, database.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, database.ErrInvalidRole),
		errors.Is(err, database.ErrInvalidPrice),
		errors.Is(err, database.ErrInvalidQuantity),
		errors.Is(err, database.ErrInvalidOrderStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondStoreError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("store operation failed")
		respondError(w, status, "internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("encode JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
