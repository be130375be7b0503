package database

import (
	"log"

	"github.com/olympia-tickets/checkout-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Event{},
		&models.Offer{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.Ticket{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Constraints gorm tags can't express: stock can never go negative
	// (the reservation guard makes this unreachable, the constraint
	// backstops it), and a cart must be keyed by a session or a user.
	db.Exec(`
		ALTER TABLE offers DROP CONSTRAINT IF EXISTS chk_offer_stock_non_negative;
		ALTER TABLE offers ADD CONSTRAINT chk_offer_stock_non_negative CHECK (stock >= 0)
	`)
	db.Exec(`
		ALTER TABLE carts DROP CONSTRAINT IF EXISTS chk_cart_has_owner;
		ALTER TABLE carts ADD CONSTRAINT chk_cart_has_owner CHECK (user_id IS NOT NULL OR session_id IS NOT NULL)
	`)

	// One live cart per user; guest carts are free to accumulate per
	// session until merged.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_user
		ON carts (user_id)
		WHERE user_id IS NOT NULL
	`)

	return db
}
