package models

// Filter wildcard and status values. Type filtering compares against the
// CardType constants; "all" disables a clause.
const (
	FilterAll       = "all"
	StatusCompleted = "completed"
	StatusPending   = "pending"
)

// CardFilter is the composite filter input: the visible set is the
// conjunction of all four predicates.
type CardFilter struct {
	Search     string  `json:"search"`
	CategoryID *string `json:"category_id"` // nil = all categories
	Type       string  `json:"type"`        // "all" or a CardType value
	Status     string  `json:"status"`      // "all", "completed", "pending"
}
