package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/database"
	apperrors "github.com/Zchasse63/vercelpickle-sub006/pkg/errors"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/pagination"
)

// Price is selected as text so it is parsed into a decimal without passing
// through float64.
const productColumns = `id, name, price::text, images, seller_id, seller_name, inventory, unit`

// ProductRepository reads the product catalog from PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (p cart.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "GetProductByID", query)
	defer func() { end(err) }()

	return r.getOne(ctx, query, id)
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (p cart.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	ctx, end := database.TraceQuery(ctx, "GetProductBySlug", query)
	defer func() { end(err) }()

	return r.getOne(ctx, query, slug)
}

func (r *ProductRepository) getOne(ctx context.Context, query, key string) (cart.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.Product{}, apperrors.NotFound("product", key)
		}
		return cart.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns one page of products ordered by name, with the total count.
func (r *ProductRepository) List(ctx context.Context, params pagination.Params) (products []cart.Product, total int, err error) {
	query := `
		SELECT ` + productColumns + `, count(*) OVER() AS total_count
		FROM products
		ORDER BY name, id
		LIMIT $1 OFFSET $2`
	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p     cart.Product
			price string
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &price, &p.Images, &p.SellerID, &p.SellerName, &p.Inventory, &p.Unit,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, 0, fmt.Errorf("parse price of product %s: %w", p.ID, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []cart.Product{}
	}
	return products, total, nil
}

func scanProduct(row pgx.Row) (cart.Product, error) {
	var (
		p     cart.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Images, &p.SellerID, &p.SellerName, &p.Inventory, &p.Unit); err != nil {
		return cart.Product{}, err
	}

	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return cart.Product{}, fmt.Errorf("parse price of product %s: %w", p.ID, err)
	}
	return p, nil
}
