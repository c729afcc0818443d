package queue

import "github.com/shopspring/decimal"

// computeStats tallies Stats over an item set common to every backend, so
// the pending/processing/failed counts and TotalAmount logic live in one
// place.
func computeStats(items []Item, lookup AmountLookup) Stats {
	stats := Stats{TotalAmount: decimal.Zero}

	for _, item := range items {
		switch item.Status {
		case StatusPending:
			stats.Pending++
		case StatusProcessing:
			stats.Processing++
		case StatusFailed:
			stats.Failed++
		}

		if lookup != nil {
			if amount, ok := lookup(item.OrderID); ok {
				stats.TotalAmount = stats.TotalAmount.Add(amount)
			}
		}

		if stats.OldestItem == nil || item.CreatedAt.Before(*stats.OldestItem) {
			createdAt := item.CreatedAt
			stats.OldestItem = &createdAt
		}
	}

	return stats
}
