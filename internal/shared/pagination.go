package shared

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Paging carries normalized page parameters.
type Paging struct {
	Page     int
	PageSize int
}

// NormalizePaging clamps page and pageSize into their allowed ranges.
func NormalizePaging(page, pageSize int) Paging {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return Paging{Page: page, PageSize: pageSize}
}

// Offset returns the row offset for the current page.
func (p Paging) Offset() int {
	return (p.Page - 1) * p.PageSize
}
