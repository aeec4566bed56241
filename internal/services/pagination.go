package services

// Pagination bounds list sizes requested by clients.
type Pagination struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultPagination matches the API defaults: 20 per page, at most 100.
var DefaultPagination = Pagination{DefaultPageSize: 20, MaxPageSize: 100}

// Limit clamps a requested page size into [1, MaxPageSize]. Zero or negative
// requests select DefaultPageSize.
func (p Pagination) Limit(requested int) int {
	if p.DefaultPageSize <= 0 {
		p.DefaultPageSize = DefaultPagination.DefaultPageSize
	}
	if p.MaxPageSize <= 0 {
		p.MaxPageSize = DefaultPagination.MaxPageSize
	}
	if requested <= 0 {
		requested = p.DefaultPageSize
	}
	if requested > p.MaxPageSize {
		requested = p.MaxPageSize
	}
	return requested
}
