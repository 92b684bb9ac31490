package gopro

// Pager walks the search endpoint one page at a time, producing a lazy,
// restartable sequence of media items. Iteration stops on the first empty
// page or once the reported total page count is exhausted; any error aborts
// and surfaces to the caller.
type Pager struct {
	client *Client
	opts   SearchOptions

	nextPage   int
	totalPages int
	totalItems int
	done       bool
}

// NewPager creates a pager over the given search
func NewPager(client *Client, opts SearchOptions) *Pager {
	return &Pager{
		client:     client,
		opts:       opts,
		nextPage:   1,
		totalPages: -1, // unknown until the first page arrives
	}
}

// HasNext reports whether another page may be available
func (p *Pager) HasNext() bool {
	if p.done {
		return false
	}
	if p.totalPages >= 0 && p.nextPage > p.totalPages {
		return false
	}
	return true
}

// Next fetches the next page of media items. Returns an empty slice once the
// sequence is exhausted.
func (p *Pager) Next() ([]MediaItem, error) {
	if !p.HasNext() {
		return nil, nil
	}

	resp, err := p.client.Search(p.opts, p.nextPage)
	if err != nil {
		p.done = true
		return nil, err
	}

	p.totalPages = resp.Pages.TotalPages
	p.totalItems = resp.Pages.TotalItems
	p.nextPage++

	items := resp.Embedded.Media
	if len(items) == 0 {
		p.done = true
		return nil, nil
	}

	return items, nil
}

// TotalItems returns the total item count reported by the API, or -1 before
// the first page has been fetched
func (p *Pager) TotalItems() int {
	if p.totalPages < 0 {
		return -1
	}
	return p.totalItems
}

// Reset rewinds the pager to the first page
func (p *Pager) Reset() {
	p.nextPage = 1
	p.totalPages = -1
	p.totalItems = 0
	p.done = false
}
