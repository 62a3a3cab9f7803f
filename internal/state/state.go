package state

import "sync"

// CategoryStatus tracks how far a category has progressed within the run.
type CategoryStatus int

const (
	StatusPending CategoryStatus = iota
	StatusTreeResolved
	StatusPaginated
	StatusLinksCollected
	StatusProductsExtracted
	StatusDone
	StatusFailed
)

func (s CategoryStatus) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusTreeResolved:
		return "TREE_RESOLVED"
	case StatusPaginated:
		return "PAGINATED"
	case StatusLinksCollected:
		return "LINKS_COLLECTED"
	case StatusProductsExtracted:
		return "PRODUCTS_EXTRACTED"
	case StatusDone:
		return "DONE"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Tracker records per-category progress so that a whole-run retry pass can
// skip categories that already finished. Everything is in-memory; nothing
// survives the process.
type Tracker struct {
	mu        sync.Mutex
	statuses  map[string]CategoryStatus
	treeBuilt bool
}

func NewTracker() *Tracker {
	return &Tracker{statuses: make(map[string]CategoryStatus)}
}

func (t *Tracker) Status(link string) CategoryStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statuses[link]
}

// Advance moves a category forward. DONE is terminal and cannot be left; a
// FAILED category may re-enter the pipeline on the next pass.
func (t *Tracker) Advance(link string, s CategoryStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := t.statuses[link]
	if cur == StatusDone {
		return
	}
	if cur == StatusFailed || s > cur {
		t.statuses[link] = s
	}
}

func (t *Tracker) MarkFailed(link string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.statuses[link] != StatusDone {
		t.statuses[link] = StatusFailed
	}
}

func (t *Tracker) TreeBuilt() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.treeBuilt
}

func (t *Tracker) SetTreeBuilt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.treeBuilt = true
}
