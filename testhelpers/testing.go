package testhelpers

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool *pgxpool.Pool
}

// SetupTestDB connects to TEST_DATABASE_URL, applies the schema and truncates all tables.
// The test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile(schemaPath())
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE order_items, orders, idempotency_keys, products, customers`); err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}

	return &TestDB{Pool: pool}
}

func schemaPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "migrations", "0001_init.sql")
}

// SetupTestCustomer creates a test customer
func SetupTestCustomer(t *testing.T, db *TestDB) *models.Customer {
	t.Helper()

	customer := &models.Customer{
		ID:        uuid.New(),
		Name:      "Test Customer",
		Email:     "customer@example.com",
		Document:  uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO customers (id, name, email, document, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := db.Pool.Exec(context.Background(), query,
		customer.ID, customer.Name, customer.Email, customer.Document, customer.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create test customer: %v", err)
	}

	return customer
}

// SetupTestProduct creates an active test product with the given stock and price
func SetupTestProduct(t *testing.T, db *TestDB, stock int, price string) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:        uuid.New(),
		Name:      "Test Product",
		SKU:       "SKU-" + uuid.NewString()[:8],
		Price:     decimal.RequireFromString(price),
		StockQty:  stock,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO products (id, name, sku, price, stock_qty, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := db.Pool.Exec(context.Background(), query,
		product.ID, product.Name, product.SKU, product.Price, product.StockQty, product.IsActive, product.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}

	return product
}

// StockOf reads the current stock of a product
func StockOf(t *testing.T, db *TestDB, productID uuid.UUID) int {
	t.Helper()

	var stock int
	if err := db.Pool.QueryRow(context.Background(), `SELECT stock_qty FROM products WHERE id = $1`, productID).Scan(&stock); err != nil {
		t.Fatalf("Failed to read stock: %v", err)
	}
	return stock
}
