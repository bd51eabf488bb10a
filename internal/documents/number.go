package documents

import (
	"fmt"
	"time"
)

var numberPrefixes = map[Kind]string{
	KindQuotation:      "QUO",
	KindSalesOrder:     "SO",
	KindStockMovement:  "SM",
	KindPurchaseReport: "PR",
}

// NextNumber formats the document number for seq within the month of date.
func NextNumber(kind Kind, date time.Time, seq int) string {
	prefix, ok := numberPrefixes[kind]
	if !ok {
		prefix = "DOC"
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, date.Format("2006-01"), seq)
}
