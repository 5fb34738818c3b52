package controls

// DefaultPageSize is the page size of a new DataGrid or PagedDataSource.
const DefaultPageSize = 10

// PagedDataSource windows a bound item list. In memory it slices DataSource
// by CurrentPageIndex; with custom or server paging DataSource already holds
// one page and VirtualCount carries the total.
type PagedDataSource struct {
	DataSource        []any
	AllowPaging       bool
	AllowCustomPaging bool
	AllowServerPaging bool
	PageSize          int
	CurrentPageIndex  int
	VirtualCount      int
}

// NewPagedDataSource returns an unpaged source over items.
func NewPagedDataSource(items []any) *PagedDataSource {
	return &PagedDataSource{DataSource: items, PageSize: DefaultPageSize}
}

// IsPagingEnabled reports whether windows apply at all.
func (p *PagedDataSource) IsPagingEnabled() bool {
	return p.AllowPaging && p.PageSize > 0
}

func (p *PagedDataSource) isCustom() bool {
	return p.IsPagingEnabled() && p.AllowCustomPaging
}

func (p *PagedDataSource) isServer() bool {
	return p.IsPagingEnabled() && p.AllowServerPaging
}

// DataSourceCount is the number of items across all pages.
func (p *PagedDataSource) DataSourceCount() int {
	if p.isCustom() || p.isServer() {
		return p.VirtualCount
	}
	return len(p.DataSource)
}

// PageCount is 1 without paging and 0 for an empty paged source.
func (p *PagedDataSource) PageCount() int {
	if !p.IsPagingEnabled() {
		return 1
	}
	total := p.DataSourceCount()
	if total <= 0 {
		return 0
	}
	return (total + p.PageSize - 1) / p.PageSize
}

// FirstIndexInPage is the index into DataSource of the first item shown.
func (p *PagedDataSource) FirstIndexInPage() int {
	if !p.IsPagingEnabled() || p.isCustom() || p.isServer() {
		return 0
	}
	return p.CurrentPageIndex * p.PageSize
}

// IsFirstPage reports whether the current page is the first.
func (p *PagedDataSource) IsFirstPage() bool {
	return !p.IsPagingEnabled() || p.CurrentPageIndex == 0
}

// IsLastPage reports whether the current page is the last.
func (p *PagedDataSource) IsLastPage() bool {
	if !p.IsPagingEnabled() {
		return true
	}
	return p.CurrentPageIndex >= p.PageCount()-1
}

// Count is the number of items on the current page.
func (p *PagedDataSource) Count() int {
	if !p.IsPagingEnabled() {
		return len(p.DataSource)
	}
	if p.isCustom() || p.isServer() {
		return min(p.PageSize, len(p.DataSource))
	}
	first := p.FirstIndexInPage()
	if first >= len(p.DataSource) {
		return 0
	}
	return min(p.PageSize, len(p.DataSource)-first)
}

// Items returns the current page.
func (p *PagedDataSource) Items() []any {
	first := p.FirstIndexInPage()
	n := p.Count()
	if n == 0 {
		return nil
	}
	return p.DataSource[first : first+n]
}

// DataSetIndex maps a page-relative index to an absolute item index.
func (p *PagedDataSource) DataSetIndex(pageIndex int) int {
	if p.IsPagingEnabled() {
		return p.CurrentPageIndex*p.PageSize + pageIndex
	}
	return pageIndex
}
