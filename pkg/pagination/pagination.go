package pagination

// The warehouse stock feed pages by offset, not cursor: callers walk
// offset 0, limit, 2*limit, ... until a short page signals exhaustion.

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 100
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 500
)

// Page holds offset pagination inputs.
type Page struct {
	Limit  int
	Offset int
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizeOffset clamps negative offsets to zero.
func NormalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// Normalize returns a copy of the page with limit and offset normalized.
func (p Page) Normalize() Page {
	return Page{
		Limit:  NormalizeLimit(p.Limit),
		Offset: NormalizeOffset(p.Offset),
	}
}

// Next advances the page by its own limit.
func (p Page) Next() Page {
	n := p.Normalize()
	n.Offset += n.Limit
	return n
}

// Exhausted reports whether a page of got rows ends the walk. The feed never
// returns more than limit rows, so a short page means no rows remain.
func (p Page) Exhausted(got int) bool {
	return got < p.Normalize().Limit
}
