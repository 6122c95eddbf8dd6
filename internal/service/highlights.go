package service

import (
	"sync"
	"time"

	"smush/internal/observe"
)

type highlight struct {
	timer *time.Timer
	seq   uint64
}

// Highlights recuerda qué ids se crearon recientemente. El marcador vive
// fuera de la entidad y se limpia solo pasado el ttl.
type Highlights struct {
	ttl time.Duration

	mu     sync.Mutex
	seq    uint64
	ids    map[int64]highlight
	marked *observe.Subject[map[int64]bool]
}

func NewHighlights(ttl time.Duration) *Highlights {
	return &Highlights{
		ttl:    ttl,
		ids:    map[int64]highlight{},
		marked: observe.NewSubject(map[int64]bool{}),
	}
}

// Mark resalta id. Marcar de nuevo reinicia el plazo.
func (h *Highlights) Mark(id int64) {
	defer h.marked.Flush()
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.ids[id]; ok {
		prev.timer.Stop()
	}
	h.seq++
	seq := h.seq
	h.ids[id] = highlight{timer: time.AfterFunc(h.ttl, func() { h.expire(id, seq) }), seq: seq}
	h.publishLocked()
}

func (h *Highlights) IsNew(id int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.ids[id]
	return ok
}

// Subscribe recibe el conjunto actual de ids resaltados. El callback corre
// sin el lock interno y puede consultar IsNew.
func (h *Highlights) Subscribe(fn func(map[int64]bool)) (cancel func()) {
	return h.marked.Subscribe(fn)
}

// Clear descarta todos los marcadores pendientes.
func (h *Highlights) Clear() {
	defer h.marked.Flush()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.ids) == 0 {
		return
	}
	for _, hl := range h.ids {
		hl.timer.Stop()
	}
	h.ids = map[int64]highlight{}
	h.publishLocked()
}

func (h *Highlights) expire(id int64, seq uint64) {
	defer h.marked.Flush()
	h.mu.Lock()
	defer h.mu.Unlock()
	// Un Mark posterior pudo reemplazar el timer.
	if hl, ok := h.ids[id]; !ok || hl.seq != seq {
		return
	}
	delete(h.ids, id)
	h.publishLocked()
}

func (h *Highlights) publishLocked() {
	snapshot := make(map[int64]bool, len(h.ids))
	for id := range h.ids {
		snapshot[id] = true
	}
	h.marked.Stage(snapshot)
}
