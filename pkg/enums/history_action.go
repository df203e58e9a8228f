package enums

import "fmt"

// HistoryAction is the action type recorded on a stock history row. A
// "remove" request is recorded as "update"; "add" and "adjust" record
// themselves, and "delete" marks the terminal row written before an item
// is removed.
type HistoryAction string

const (
	HistoryActionAdd    HistoryAction = "add"
	HistoryActionUpdate HistoryAction = "update"
	HistoryActionDelete HistoryAction = "delete"
	HistoryActionAdjust HistoryAction = "adjust"
)

var validHistoryActions = []HistoryAction{
	HistoryActionAdd,
	HistoryActionUpdate,
	HistoryActionDelete,
	HistoryActionAdjust,
}

// String implements fmt.Stringer.
func (a HistoryAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known HistoryAction.
func (a HistoryAction) IsValid() bool {
	for _, candidate := range validHistoryActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseHistoryAction converts raw input into a HistoryAction.
func ParseHistoryAction(value string) (HistoryAction, error) {
	for _, candidate := range validHistoryActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid history action %q", value)
}
