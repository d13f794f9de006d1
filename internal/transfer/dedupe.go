package transfer

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Deduplicator remembers recently seen event IDs. Events without an ID are
// never treated as duplicates.
type Deduplicator struct {
	seen *lru.Cache[string, struct{}]
}

func NewDeduplicator(size int) (*Deduplicator, error) {
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Deduplicator{seen: cache}, nil
}

// Seen records ev and reports whether its ID was already present. A nil
// Deduplicator accepts everything.
func (d *Deduplicator) Seen(ev Event) bool {
	if d == nil || ev.EventID == "" {
		return false
	}
	found, _ := d.seen.ContainsOrAdd(ev.EventID, struct{}{})
	return found
}

func (d *Deduplicator) Len() int {
	if d == nil {
		return 0
	}
	return d.seen.Len()
}
