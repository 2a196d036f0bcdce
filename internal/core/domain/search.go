package domain

// SearchOptions configures a similarity query.
type SearchOptions struct {
	// Limit is the maximum number of results. Values <= 0 use the default.
	Limit int

	// Threshold is the minimum score a result must reach.
	Threshold float64
}
