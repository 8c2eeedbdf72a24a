package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront/internal/database/dbtest"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

func TestGetProductBySlugHidesSoldOutSizes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	soldOut := dbtest.SizeID(t, env.sweater, "S")
	require.NoError(t, env.db.Model(&models.ProductSize{}).Where("id = ?", soldOut).Update("stock", 0).Error)

	product, err := env.catalog.GetProductBySlug(ctx, "sweater")
	require.NoError(t, err)
	require.Len(t, product.Sizes, 1)
	assert.Equal(t, "M", product.Sizes[0].Name)

	_, err = env.catalog.GetProductBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetSizeVariantChecksOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	size, err := env.catalog.GetSizeVariant(ctx, env.sweater, dbtest.SizeID(t, env.sweater, "M"))
	require.NoError(t, err)
	assert.Equal(t, env.sweater.ID, size.ProductID)

	_, err = env.catalog.GetSizeVariant(ctx, env.tote, dbtest.SizeID(t, env.sweater, "M"))
	assert.ErrorIs(t, err, ErrSizeNotFound)

	_, err = env.catalog.GetSizeVariant(ctx, env.sweater, uuid.New())
	assert.ErrorIs(t, err, ErrSizeNotFound)
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)

	products, total, err := env.catalog.ListProducts(context.Background(), utils.PaginationParams{
		Page:  1,
		Limit: 2,
		Sort:  "price",
		Order: "asc",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, products, 2)
	assert.Equal(t, "tote", products[0].Slug)
	assert.Equal(t, "scarf", products[1].Slug)

	// Unknown sort columns fall back to creation time.
	products, _, err = env.catalog.ListProducts(context.Background(), utils.PaginationParams{
		Page:  2,
		Limit: 2,
		Sort:  "price; DROP TABLE products",
		Order: "desc",
	})
	require.NoError(t, err)
	assert.Len(t, products, 1)
}
