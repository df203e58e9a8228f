package enums

// StockStatus is the derived low/medium/high classification of an item's
// quantity against its low-stock threshold. It is never stored.
type StockStatus string

const (
	StockStatusLow    StockStatus = "low"
	StockStatusMedium StockStatus = "medium"
	StockStatusHigh   StockStatus = "high"
)

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// StockStatusFor classifies quantity against the threshold: at or below the
// threshold is low, at or below twice the threshold is medium, else high.
func StockStatusFor(quantity, threshold int) StockStatus {
	switch {
	case quantity <= threshold:
		return StockStatusLow
	case quantity <= threshold*2:
		return StockStatusMedium
	default:
		return StockStatusHigh
	}
}
