package crawler

// Item is one frontier entry. SlugHint is empty for the root.
type Item struct {
	DocumentID string
	SlugHint   string
}

// Frontier is a FIFO of documents to visit. A document id is accepted at
// most once for the lifetime of the frontier, including after it has been
// dequeued.
type Frontier struct {
	queue []Item
	head  int
	seen  map[string]struct{}
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{seen: make(map[string]struct{})}
}

// TryEnqueue appends id unless it was enqueued before. It reports whether
// the id was added.
func (f *Frontier) TryEnqueue(id, hint string) bool {
	if id == "" {
		return false
	}
	if _, ok := f.seen[id]; ok {
		return false
	}
	f.seen[id] = struct{}{}
	f.queue = append(f.queue, Item{DocumentID: id, SlugHint: hint})
	return true
}

// Next pops the oldest pending item.
func (f *Frontier) Next() (Item, bool) {
	if f.head >= len(f.queue) {
		return Item{}, false
	}
	item := f.queue[f.head]
	f.queue[f.head] = Item{}
	f.head++
	if f.head == len(f.queue) {
		f.queue = f.queue[:0]
		f.head = 0
	}
	return item, true
}

// Len returns the number of pending items.
func (f *Frontier) Len() int {
	return len(f.queue) - f.head
}

// Seen reports whether id was ever enqueued.
func (f *Frontier) Seen(id string) bool {
	_, ok := f.seen[id]
	return ok
}
