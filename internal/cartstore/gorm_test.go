package cartstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tilldesk/register-backend/internal/ledger"
)

func setupCartStoreDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS parked_carts (
  id TEXT PRIMARY KEY,
  register_id TEXT NOT NULL,
  name TEXT NOT NULL,
  items TEXT NOT NULL,
  total NUMERIC NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  cart_created_at DATETIME NOT NULL,
  cart_updated_at DATETIME NOT NULL
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

type gormRunner struct {
	db *gorm.DB
}

func (r gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func parkedCart(name string, prices ...string) ledger.SavedCart {
	now := time.Now().UTC()
	items := make([]ledger.Line, 0, len(prices))
	total := decimal.Zero
	for _, price := range prices {
		unit := decimal.RequireFromString(price)
		items = append(items, ledger.Line{
			ProductID: uuid.New(),
			SKU:       "sku-" + name,
			Name:      "Item " + name,
			UnitPrice: unit,
			Quantity:  2,
		})
		total = total.Add(unit.Mul(decimal.NewFromInt(2)))
	}
	return ledger.SavedCart{
		ID:        uuid.New(),
		Name:      name,
		Items:     items,
		Total:     total,
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now,
	}
}

func TestGormStoreRoundTrip(t *testing.T) {
	db := setupCartStoreDB(t)
	store, err := NewGormStore(gormRunner{db: db}, "till-roundtrip")
	require.NoError(t, err)

	first := parkedCart("Lunch", "2.50", "0.99")
	second := parkedCart("Evening", "18.50")
	require.NoError(t, store.Save(context.Background(), []ledger.SavedCart{first, second}))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, first.ID, loaded[0].ID)
	assert.Equal(t, "Lunch", loaded[0].Name)
	assert.Len(t, loaded[0].Items, 2)
	assert.Equal(t, first.Items[0].ProductID, loaded[0].Items[0].ProductID)
	assert.Equal(t, 2, loaded[0].Items[0].Quantity)
	assert.True(t, loaded[0].Items[0].UnitPrice.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, loaded[0].Total.Equal(first.Total))
	assert.WithinDuration(t, first.CreatedAt, loaded[0].CreatedAt, time.Second)
	assert.WithinDuration(t, first.UpdatedAt, loaded[0].UpdatedAt, time.Second)

	assert.Equal(t, second.ID, loaded[1].ID)
	assert.Equal(t, "Evening", loaded[1].Name)
}

func TestGormStoreSaveReplacesSet(t *testing.T) {
	db := setupCartStoreDB(t)
	store, err := NewGormStore(gormRunner{db: db}, "till-replace")
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), []ledger.SavedCart{
		parkedCart("first", "1.00"),
		parkedCart("second", "2.00"),
	}))
	survivor := parkedCart("survivor", "3.00")
	require.NoError(t, store.Save(context.Background(), []ledger.SavedCart{survivor}))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, survivor.ID, loaded[0].ID)
}

func TestGormStoreSaveEmptyClearsSet(t *testing.T) {
	db := setupCartStoreDB(t)
	store, err := NewGormStore(gormRunner{db: db}, "till-clear")
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), []ledger.SavedCart{parkedCart("gone", "1.00")}))
	require.NoError(t, store.Save(context.Background(), nil))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestGormStoreScopesByRegister(t *testing.T) {
	db := setupCartStoreDB(t)
	left, err := NewGormStore(gormRunner{db: db}, "till-left")
	require.NoError(t, err)
	right, err := NewGormStore(gormRunner{db: db}, "till-right")
	require.NoError(t, err)

	leftCart := parkedCart("left", "1.00")
	rightCart := parkedCart("right", "2.00")
	require.NoError(t, left.Save(context.Background(), []ledger.SavedCart{leftCart}))
	require.NoError(t, right.Save(context.Background(), []ledger.SavedCart{rightCart}))

	require.NoError(t, left.Save(context.Background(), nil))

	loaded, err := right.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, rightCart.ID, loaded[0].ID)
}

func TestNewGormStoreValidates(t *testing.T) {
	_, err := NewGormStore(nil, "till-1")
	assert.Error(t, err)

	_, err = NewGormStore(gormRunner{db: setupCartStoreDB(t)}, "  ")
	assert.Error(t, err)
}
