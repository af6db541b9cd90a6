package orders

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-parts-shop/internal/catalog"
	"github.com/ariefcatur/go-parts-shop/internal/postgres"
)

// PgTransactor binds the catalog and ledger repositories to one pgx.Tx.
type PgTransactor struct{ Pool *pgxpool.Pool }

func (t *PgTransactor) InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	return postgres.InTx(ctx, t.Pool, func(tx pgx.Tx) error {
		return fn(ctx, Stores{
			Stock:  &catalog.Repo{DB: tx},
			Ledger: &Repo{DB: tx},
		})
	})
}

// PgStores are the same repositories bound to the pool, one statement per
// call, for compensate mode.
func PgStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Stock:  &catalog.Repo{DB: pool},
		Ledger: &Repo{DB: pool},
	}
}
