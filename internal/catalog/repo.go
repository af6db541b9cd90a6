package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-parts-shop/internal/postgres"
)

type Repo struct{ DB postgres.DBTX }

const productColumns = `id, category_id, sku, name, description, image_url, price, quantity, created_at, updated_at`

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *Repo) GetPriceAndStock(ctx context.Context, productID string) (PriceStock, error) {
	if !validID(productID) {
		return PriceStock{}, ErrProductNotFound
	}
	var ps PriceStock
	err := r.DB.QueryRow(ctx, `SELECT price, quantity FROM products WHERE id=$1`, productID).
		Scan(&ps.Price, &ps.Quantity)
	if postgres.IsNoRows(err) {
		return PriceStock{}, ErrProductNotFound
	}
	if err != nil {
		return PriceStock{}, errors.Wrap(err, "select price and stock")
	}
	return ps, nil
}

// DecrementStock is a single conditional UPDATE: the guard and the write are
// one statement, so two concurrent orders cannot both pass the check.
func (r *Repo) DecrementStock(ctx context.Context, productID string, amount int) error {
	if amount <= 0 {
		return errors.Errorf("decrement amount must be positive, got %d", amount)
	}
	if !validID(productID) {
		return ErrProductNotFound
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2`, productID, amount)
	if err != nil {
		return errors.Wrap(err, "decrement stock")
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	if err := r.exists(ctx, productID); err != nil {
		return err
	}
	return ErrInsufficientStock
}

func (r *Repo) RestoreStock(ctx context.Context, productID string, amount int) error {
	if amount <= 0 {
		return errors.Errorf("restore amount must be positive, got %d", amount)
	}
	if !validID(productID) {
		return ErrProductNotFound
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1`, productID, amount)
	if err != nil {
		return errors.Wrap(err, "restore stock")
	}
	if ct.RowsAffected() != 1 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repo) exists(ctx context.Context, productID string) error {
	var one int
	err := r.DB.QueryRow(ctx, `SELECT 1 FROM products WHERE id=$1`, productID).Scan(&one)
	if postgres.IsNoRows(err) {
		return ErrProductNotFound
	}
	return errors.Wrap(err, "product exists")
}

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	var categoryID *string
	err := row.Scan(&p.ID, &categoryID, &p.SKU, &p.Name, &p.Description, &p.ImageURL,
		&p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	if categoryID != nil {
		p.CategoryID = *categoryID
	}
	return p, err
}

func (r *Repo) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	q := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if f.CategoryID != "" {
		if !validID(f.CategoryID) {
			return []Product{}, nil
		}
		q += ` WHERE category_id = $1`
		args = append(args, f.CategoryID)
	}
	q += ` ORDER BY name, id`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	if !validID(id) {
		return Product{}, ErrProductNotFound
	}
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if postgres.IsNoRows(err) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, errors.Wrap(err, "get product")
	}
	return p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *Repo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if p.CategoryID != "" && !validID(p.CategoryID) {
		return Product{}, ErrCategoryNotFound
	}
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, nullable(p.CategoryID), p.SKU, p.Name, p.Description, p.ImageURL,
		p.Price, p.Quantity, p.CreatedAt, p.UpdatedAt)
	switch {
	case postgres.IsUniqueViolation(err):
		return Product{}, ErrDuplicate
	case postgres.IsForeignKeyViolation(err):
		return Product{}, ErrCategoryNotFound
	case err != nil:
		return Product{}, errors.Wrap(err, "insert product")
	}
	return p, nil
}

// UpdateProduct replaces the mutable fields. Orders already placed keep their
// captured unit price.
func (r *Repo) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	if !validID(p.ID) {
		return Product{}, ErrProductNotFound
	}
	if p.CategoryID != "" && !validID(p.CategoryID) {
		return Product{}, ErrCategoryNotFound
	}
	row := r.DB.QueryRow(ctx, `
		UPDATE products SET category_id=$2, sku=$3, name=$4, description=$5, image_url=$6,
			price=$7, quantity=$8, updated_at=now()
		WHERE id=$1
		RETURNING `+productColumns,
		p.ID, nullable(p.CategoryID), p.SKU, p.Name, p.Description, p.ImageURL, p.Price, p.Quantity)
	out, err := scanProduct(row)
	switch {
	case postgres.IsNoRows(err):
		return Product{}, ErrProductNotFound
	case postgres.IsUniqueViolation(err):
		return Product{}, ErrDuplicate
	case postgres.IsForeignKeyViolation(err):
		return Product{}, ErrCategoryNotFound
	case err != nil:
		return Product{}, errors.Wrap(err, "update product")
	}
	return out, nil
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrProductNotFound
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, description, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan category")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) CreateCategory(ctx context.Context, c Category) (Category, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	_, err := r.DB.Exec(ctx, `INSERT INTO categories(id, name, description, created_at) VALUES ($1,$2,$3,$4)`,
		c.ID, c.Name, c.Description, c.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return Category{}, ErrDuplicate
	}
	if err != nil {
		return Category{}, errors.Wrap(err, "insert category")
	}
	return c, nil
}

func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrCategoryNotFound
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if postgres.IsForeignKeyViolation(err) {
		return ErrCategoryInUse
	}
	if err != nil {
		return errors.Wrap(err, "delete category")
	}
	if ct.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
