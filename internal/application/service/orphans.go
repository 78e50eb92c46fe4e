package service

import (
	"sort"
	"sync"
	"time"
)

// Orphan is an order header left behind when its lines failed to save and the
// compensating delete failed too. Orphans are listed for manual cleanup only.
type Orphan struct {
	OrderID    int64     `json:"order_id"`
	Step       string    `json:"step"`
	Error      string    `json:"error"`
	RecordedAt time.Time `json:"recorded_at"`
}

// OrphanRegistry remembers orphans for the lifetime of the process.
type OrphanRegistry struct {
	mu    sync.Mutex
	items map[int64]Orphan
}

func NewOrphanRegistry() *OrphanRegistry {
	return &OrphanRegistry{items: make(map[int64]Orphan)}
}

func (r *OrphanRegistry) Record(o Orphan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[o.OrderID] = o
}

// Forget drops an order once it has been deleted.
func (r *OrphanRegistry) Forget(orderID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, orderID)
}

func (r *OrphanRegistry) List() []Orphan {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Orphan, 0, len(r.items))
	for _, o := range r.items {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}
