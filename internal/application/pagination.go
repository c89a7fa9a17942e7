package application

// DefaultPageSize applies when a listing does not name a page size.
const DefaultPageSize = 20

// MaxPageSize caps the page size a caller may request.
const MaxPageSize = 200

// Page is one page of a listing.
type Page[T any] struct {
	Items    []T
	Page     int // 1-based
	PageSize int
	HasNext  bool
	HasPrev  bool
	Total    int
}

// Paginate slices items for the given 1-based page. Out of range values fall
// back to defaults.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	total := len(items)

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page[T]{
		Items:    items[start:end],
		Page:     page,
		PageSize: pageSize,
		HasNext:  end < total,
		HasPrev:  page > 1,
		Total:    total,
	}
}
