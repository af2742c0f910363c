package repository

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is 1-based. Out-of-range values are clamped rather than rejected.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) clamped() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) offset() int { return (p.Page - 1) * p.PageSize }

type PageResult[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

func (r *PageResult[T]) setTotal(total int64) {
	r.Total = total
	r.TotalPages = 0
	if total > 0 && r.PageSize > 0 {
		size := int64(r.PageSize)
		r.TotalPages = int((total + size - 1) / size)
	}
}
