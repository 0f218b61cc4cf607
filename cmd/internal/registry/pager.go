package registry

// PageSize is the fixed number of items per page in both lists.
const PageSize = 10

// ListID names one of the two paginated lists.
type ListID string

const (
	ListAvailable ListID = "available"
	ListSelected  ListID = "selected"
)

// ParseListID maps a wire name to a ListID.
func ParseListID(s string) (ListID, bool) {
	switch ListID(s) {
	case ListAvailable, ListSelected:
		return ListID(s), true
	default:
		return "", false
	}
}

// TotalPages is ceil(n / PageSize); zero for an empty list.
func TotalPages(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PageSize - 1) / PageSize
}

// Paginate returns the slice for 1-based page. A page past the end is empty.
func Paginate[T any](items []T, page int) []T {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * PageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// NextPage returns the cursor after moving forward, clamped to [1, total].
func NextPage(page, total int) int {
	next := page + 1
	if next > total {
		next = total
	}
	if next < 1 {
		next = 1
	}
	return next
}

// PrevPage returns the cursor after moving back; it never goes below 1.
func PrevPage(page int) int {
	if page-1 < 1 {
		return 1
	}
	return page - 1
}
