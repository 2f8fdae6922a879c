package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/deegraphics/melisse-backend/pkg/money"
)

// Stats aggregates ledger records for the stats commands.
type Stats struct {
	TotalOrders int
	TotalItems  int
	Revenue     decimal.Decimal
	TopProduct  string
}

// Summarize folds every record into server-wide stats. Malformed price
// fragments count zero revenue; ties on the top product keep the product
// seen first.
func Summarize(records []Record) Stats {
	return summarize(records, func(Record) bool { return true })
}

// SummarizeUser folds only the given user's records.
func SummarizeUser(records []Record, userID string) Stats {
	return summarize(records, func(r Record) bool { return r.UserID == userID })
}

func summarize(records []Record, include func(Record) bool) Stats {
	stats := Stats{Revenue: decimal.Zero, TopProduct: "N/A"}
	counts := make(map[string]int)
	topCount := 0

	for _, record := range records {
		if !include(record) {
			continue
		}
		stats.TotalOrders++
		stats.TotalItems += len(record.Items)
		for _, fragment := range record.Items {
			title, priceText := SplitItem(fragment)
			stats.Revenue = stats.Revenue.Add(money.Parse(priceText))
			counts[title]++
			if counts[title] > topCount {
				topCount = counts[title]
				stats.TopProduct = title
			}
		}
	}
	return stats
}
