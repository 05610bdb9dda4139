package server

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Subscriber is one traffic subscription, a TCP session or a websocket connection.
type Subscriber interface {
	WriteLine(line string, deadline time.Time) error
	Close() error
	Name() string
}

type member struct {
	id  uint
	sub Subscriber
}

// Hub is the registry of traffic subscribers.
type Hub struct {
	mu  sync.RWMutex
	seq uint
	us  []member // sorted by id
	ns  map[uint]Subscriber

	writeTimeout time.Duration
	log          *zap.Logger
}

func NewHub(writeTimeout time.Duration, log *zap.Logger) *Hub {
	return &Hub{
		us:           make([]member, 0),
		ns:           make(map[uint]Subscriber),
		writeTimeout: writeTimeout,
		log:          log,
	}
}

func (h *Hub) Register(sub Subscriber) uint {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.seq
	h.seq++
	h.ns[id] = sub
	h.us = append(h.us, member{id: id, sub: sub})

	h.log.Info("traffic subscriber registered", zap.Uint("id", id), zap.String("conn", sub.Name()))
	return id
}

// Remove unregisters and closes the subscriber. Unknown ids are ignored.
func (h *Hub) Remove(id uint) bool {
	h.mu.Lock()
	sub, ok := h.ns[id]
	if !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.ns, id)

	i := sort.Search(len(h.us), func(i int) bool {
		return h.us[i].id >= id
	})
	newUs := make([]member, len(h.us)-1)
	copy(newUs[:i], h.us[:i])
	copy(newUs[i:], h.us[i+1:])
	h.us = newUs
	h.mu.Unlock()

	sub.Close()
	h.log.Info("traffic subscriber removed", zap.Uint("id", id), zap.String("conn", sub.Name()))
	return true
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.us)
}

// Broadcast writes line to every subscriber in parallel and waits for all writes. Subscribers
// whose write fails or misses the write timeout are removed, the rest are unaffected.
func (h *Hub) Broadcast(line string) {
	h.mu.RLock()
	members := make([]member, len(h.us))
	copy(members, h.us)
	h.mu.RUnlock()

	if len(members) == 0 {
		return
	}

	deadline := time.Now().Add(h.writeTimeout)
	failed := make([]bool, len(members))
	var wg sync.WaitGroup
	for i, m := range members {
		wg.Add(1)
		go func(i int, m member) {
			defer wg.Done()
			if err := m.sub.WriteLine(line, deadline); err != nil {
				h.log.Warn("traffic broadcast failed", zap.Uint("id", m.id), zap.String("conn", m.sub.Name()), zap.Error(err))
				failed[i] = true
			}
		}(i, m)
	}
	wg.Wait()

	for i, m := range members {
		if failed[i] {
			h.Remove(m.id)
		}
	}
}

// CloseAll removes every subscriber.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	ids := make([]uint, len(h.us))
	for i, m := range h.us {
		ids[i] = m.id
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Remove(id)
	}
}
