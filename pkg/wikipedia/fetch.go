package wikipedia

import (
	"context"
	"log"

	"rutasonora/pkg/fanout"
)

// FetchAll fetches summaries for every title concurrently. The result has one
// item per title in the same order; a failed fetch becomes a placeholder
// carrying the requested title and the error, so the batch never fails.
func (c *Client) FetchAll(ctx context.Context, titles []string) []SummaryItem {
	results := fanout.Map(ctx, titles, c.concurrency, c.Summary)

	items := make([]SummaryItem, len(results))
	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			items[i] = SummaryItem{Title: titles[i], Err: r.Err}
			continue
		}
		items[i] = r.Value
	}
	if failed > 0 {
		log.Printf("[wikipedia] %d of %d summaries failed", failed, len(titles))
	}
	return items
}
