package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/safar/go-shop-store/internal/config"
	"github.com/safar/go-shop-store/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	log.Logger = newLogger(cfg.Logger)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	log.Info().Msg("connected to database")

	mux := http.NewServeMux()

	mux.HandleFunc("/signup", handleSignup(db))
	mux.HandleFunc("/login", handleLogin(db))
	mux.HandleFunc("/users/", handleUserByID(db))
	mux.HandleFunc("/products", handleProducts(db))
	mux.HandleFunc("/products/", handleProductByID(db))
	mux.HandleFunc("/dashboard", handleDashboard(db))
	mux.HandleFunc("/cart", handleCart(db))
	mux.HandleFunc("/cart/items", handleCartItems(db))
	mux.HandleFunc("/cart/items/", handleCartItemByID(db))
	mux.HandleFunc("/wishlist", handleWishlist(db))
	mux.HandleFunc("/wishlist/items", handleWishlistItems(db))
	mux.HandleFunc("/wishlist/items/", handleWishlistItemByID(db))
	mux.HandleFunc("/wishlist/move", handleWishlistMove(db))
	mux.HandleFunc("/checkout", handleCheckout(db))
	mux.HandleFunc("/orders", handleOrders(db))
	mux.HandleFunc("/orders/", handleOrderByID(db))

	limiter := rate.NewLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)
	handler := requestLogger(rateLimit(limiter, mux))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Info().Str("port", cfg.Server.Port).Msg("server starting")
	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func newLogger(cfg config.LoggerConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := zerolog.New(os.Stdout)
	if cfg.Pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	return out.Level(level).With().Timestamp().Logger()
}
