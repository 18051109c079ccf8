package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/database"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/slug"
)

const productColumns = 9

// upsert writes products in multi-row INSERT batches of batchSize.
func upsert(ctx context.Context, db database.DBTX, products []cart.Product, batchSize int, log *slog.Logger) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	for start := 0; start < len(products); start += batchSize {
		end := min(start+batchSize, len(products))
		query, args := upsertStatement(products[start:end])

		if _, err := db.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert products %d-%d: %w", start, end, err)
		}
		log.Debug("batch written", slog.Int("through", end), slog.Int("total", len(products)))
	}
	return nil
}

func upsertStatement(batch []cart.Product) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO products (id, name, slug, price, images, seller_id, seller_name, inventory, unit) VALUES ")

	args := make([]any, 0, len(batch)*productColumns)
	for i, p := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * productColumns
		sb.WriteString("(")
		for c := 1; c <= productColumns; c++ {
			if c > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+c)
		}
		sb.WriteString(")")

		args = append(args,
			p.ID,
			p.Name,
			slug.Generate(p.Name),
			p.Price.StringFixed(2),
			p.Images,
			p.SellerID,
			p.SellerName,
			p.Inventory,
			p.Unit,
		)
	}

	sb.WriteString(` ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		slug = EXCLUDED.slug,
		price = EXCLUDED.price,
		images = EXCLUDED.images,
		seller_id = EXCLUDED.seller_id,
		seller_name = EXCLUDED.seller_name,
		inventory = EXCLUDED.inventory,
		unit = EXCLUDED.unit,
		updated_at = NOW()`)
	return sb.String(), args
}
