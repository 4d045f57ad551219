package ws

import (
	"sync"
)

// Hub tracks the live peer of each session. A new peer for the same
// session closes the old one.
type Hub struct {
	mu    sync.RWMutex
	peers map[string]*Peer
}

func NewHub() *Hub {
	return &Hub{peers: map[string]*Peer{}}
}

func (h *Hub) Add(id string, p *Peer) {
	h.mu.Lock()
	prev := h.peers[id]
	h.peers[id] = p
	h.mu.Unlock()
	if prev != nil && prev != p {
		prev.Close()
	}
}

func (h *Hub) Get(id string) (*Peer, bool) {
	h.mu.RLock()
	p, ok := h.peers[id]
	h.mu.RUnlock()
	return p, ok
}

// Remove forgets p if it is still the peer of id.
func (h *Hub) Remove(id string, p *Peer) {
	h.mu.Lock()
	if h.peers[id] == p {
		delete(h.peers, id)
	}
	h.mu.Unlock()
}

// Kick closes the peer of id, if any.
func (h *Hub) Kick(id string) bool {
	h.mu.Lock()
	p, ok := h.peers[id]
	delete(h.peers, id)
	h.mu.Unlock()
	if ok {
		p.Close()
	}
	return ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}
