package orders_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"pgregory.net/rapid"

	"github.com/ariefcatur/go-parts-shop/internal/apperr"
	"github.com/ariefcatur/go-parts-shop/internal/catalog"
	"github.com/ariefcatur/go-parts-shop/internal/memstore"
	"github.com/ariefcatur/go-parts-shop/internal/orders"
)

func TestCreate_ConcurrentOrdersNeverOversell(t *testing.T) {
	defer goleak.VerifyNone(t)

	const (
		stock   = 10
		buyers  = 50
		perUser = 1
	)
	f := newFixture()
	p := f.product(t, "7.00", stock)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		reasons = map[string]int{}
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), explicit(fmt.Sprintf("u%d", i), item(p, perUser)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			reasons[apperr.As(err).Reason]++
		}(i)
	}
	wg.Wait()

	assert.Equal(t, stock, ok)
	assert.Equal(t, buyers-stock, reasons["insufficient_stock"])
	assert.Zero(t, f.stockOf(t, p))
	assert.Equal(t, stock, f.orderCount(t))
}

// TestCreate_Properties drives random order sequences against random stock and
// checks that totals are exact sums and stock is conserved.
func TestCreate_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		mem := memstore.New()
		svc := &orders.Service{Stores: mem.OrderStores(), Cart: mem.Carts()}

		n := rapid.IntRange(1, 4).Draw(t, "products")
		ids := make([]string, n)
		initial := map[string]int{}
		for i := range ids {
			p, err := mem.Catalog().CreateProduct(ctx, catalog.Product{
				SKU:      fmt.Sprintf("sku-%d", i),
				Name:     "part",
				Price:    decimal.New(rapid.Int64Range(0, 100000).Draw(t, "cents"), -2),
				Quantity: rapid.IntRange(0, 20).Draw(t, "stock"),
			})
			require.NoError(t, err)
			ids[i] = p.ID
			initial[p.ID] = p.Quantity
		}

		itemGen := rapid.Custom(func(t *rapid.T) orders.ItemInput {
			return orders.ItemInput{
				ProductID: rapid.SampledFrom(ids).Draw(t, "product"),
				Quantity:  rapid.IntRange(1, 8).Draw(t, "qty"),
			}
		})

		sold := map[string]int{}
		committed := 0
		attempts := rapid.IntRange(1, 12).Draw(t, "attempts")
		for a := 0; a < attempts; a++ {
			items := rapid.SliceOfN(itemGen, 1, 4).Draw(t, "items")
			res, err := svc.Create(ctx, explicit("u", items...))
			if err != nil {
				assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
				continue
			}
			committed++
			assert.True(t, res.Order.Total.Equal(orders.SumLines(res.Order.Lines)))
			for _, it := range items {
				sold[it.ProductID] += it.Quantity
			}
		}

		for _, id := range ids {
			p, err := mem.Catalog().GetProduct(ctx, id)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, p.Quantity, 0)
			assert.Equal(t, initial[id]-sold[id], p.Quantity)
		}
		all, err := mem.Orders().List(ctx, orders.ListFilter{})
		require.NoError(t, err)
		assert.Len(t, all, committed)
		for _, o := range all {
			assert.True(t, o.Total.Equal(orders.SumLines(o.Lines)))
		}
	})
}
