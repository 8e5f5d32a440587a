package monuments

// PageSize is the number of cards per page in the listing.
const PageSize = 6

type Page[T any] struct {
	Items      []T `json:"items"`
	Index      int `json:"index"`
	TotalPages int `json:"totalPages"`
}

// TotalPages is ceil(n/size), 0 for an empty list.
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

func clamp(index, total int) int {
	if total == 0 || index < 0 {
		return 0
	}
	if index > total-1 {
		return total - 1
	}
	return index
}

// Paginate returns page index of items, clamping index into range. The page
// shares its backing array with items.
func Paginate[T any](items []T, size, index int) Page[T] {
	total := TotalPages(len(items), size)
	index = clamp(index, total)
	if total == 0 {
		return Page[T]{Items: []T{}, Index: 0, TotalPages: 0}
	}
	start := index * size
	end := min(start+size, len(items))
	return Page[T]{Items: items[start:end], Index: index, TotalPages: total}
}

// Pager tracks the current page index for one navigation context.
type Pager struct {
	size  int
	index int
	total int
}

func NewPager(size int) *Pager {
	if size <= 0 {
		size = PageSize
	}
	return &Pager{size: size}
}

func (p *Pager) Index() int      { return p.index }
func (p *Pager) TotalPages() int { return p.total }

// SetLen updates the page count for a list of n items. The index is clamped
// but otherwise kept.
func (p *Pager) SetLen(n int) {
	p.total = TotalPages(n, p.size)
	p.index = clamp(p.index, p.total)
}

func (p *Pager) Prev() int {
	p.index = clamp(p.index-1, p.total)
	return p.index
}

func (p *Pager) Next() int {
	p.index = clamp(p.index+1, p.total)
	return p.index
}

// Reset goes back to the first page. Call it only when the route or the
// requested name changes.
func (p *Pager) Reset() { p.index = 0 }
