package store

import (
	"context"

	"github.com/gsetrade/gsebook/internal/model"
)

// ItemSummary totals counts and profits over every item.
// Sums are done in Go because money columns are decimal text.
func ItemSummary(ctx context.Context, db DBTX) (model.Summary, error) {
	items, err := ListItems(ctx, db)
	if err != nil {
		return model.Summary{}, err
	}
	return model.Summarize(items), nil
}
