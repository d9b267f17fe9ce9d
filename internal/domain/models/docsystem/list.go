package docsystem

// Default list configuration values
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListOptions paginates list queries.
type ListOptions struct {
	Limit  int // Number of results to return (default: 20)
	Offset int // Number of results to skip (default: 0)
}

// ApplyDefaults fills in default values for unset or out-of-range fields
func (opts *ListOptions) ApplyDefaults() {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
}

// DescendantFilters narrows a descendants query. Fields left empty do not filter.
type DescendantFilters struct {
	// Title matches a case- and accent-insensitive substring of the title.
	Title string
}

// DocumentPage is one page of a list query.
type DocumentPage struct {
	Count   int        `json:"count"` // total matches across all pages
	Results []Document `json:"results"`
}
