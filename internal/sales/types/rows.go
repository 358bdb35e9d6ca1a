package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// SalesFactRow mirrors the sales_facts BigQuery schema.
type SalesFactRow struct {
	EventID         string             `bigquery:"event_id"`
	EventType       string             `bigquery:"event_type"`
	OccurredAt      time.Time          `bigquery:"occurred_at"`
	ReceiptID       *string            `bigquery:"receipt_id"`
	RegisterID      *string            `bigquery:"register_id"`
	CustomerName    *string            `bigquery:"customer_name"`
	GrandTotalCents *int64             `bigquery:"grand_total_cents"`
	ItemCount       *int64             `bigquery:"item_count"`
	UnitsSold       *int64             `bigquery:"units_sold"`
	Items           cbigquery.NullJSON `bigquery:"items"`
	Payload         cbigquery.NullJSON `bigquery:"payload"`
}
