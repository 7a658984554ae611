package repository

import (
	"testing"

	"shopify-catalog-mirror/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestPgTable_UpsertSQL(t *testing.T) {
	got := ordersTable.upsertSQL()

	assert.Equal(t,
		"INSERT INTO orders (id, tenant_id, shop_order_id, order_number, total_price, currency, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7, $8) "+
			"ON CONFLICT (tenant_id, shop_order_id) DO UPDATE SET "+
			"order_number = EXCLUDED.order_number, total_price = EXCLUDED.total_price, currency = EXCLUDED.currency, updated_at = $9 "+
			"RETURNING (xmax = 0)",
		got)
}

func TestPgTable_ValuesMatchColumns(t *testing.T) {
	assert.Len(t, customersTable.values(domain.Customer{}), len(customersTable.columns))
	assert.Len(t, ordersTable.values(domain.Order{}), len(ordersTable.columns))
	assert.Len(t, productsTable.values(domain.Product{}), len(productsTable.columns))
}

func TestPgTable_SelectListCastsMoney(t *testing.T) {
	assert.Equal(t,
		"id, tenant_id, shop_product_id, title, price::text, created_at, updated_at",
		productsTable.selectList())
}
