// Package bufferpool implements the LRU node cache (spec.md §4.6, C6):
// write-through or write-back caching of decoded nodes keyed by file offset,
// with pin-counted eviction protection and hit/miss/eviction statistics.
//
// Grounded on ShubhamNegi4-DaemonDB/bplustree/buffer_pool.go's
// BufferPool (Get/Put/Pin/Unpin/Flush/MarkDirty, LRU via an access-order
// slice). The recency list here is a container/list doubly-linked list
// instead of a slice, the representation spec.md §9's design notes call out
// ("an ordered map from offset to entry plus a doubly-linked recency list")
// so that touching an entry is O(1) instead of an access-order slice's O(n)
// splice.
package bufferpool

import (
	"container/list"
	"log/slog"
	"sync"

	"btreestore/errs"
	"btreestore/node"
)

// Mode selects how Put propagates a node to the block device (spec.md
// §4.6, §9).
type Mode int

const (
	// WriteThrough writes to the device before caching, then caches clean.
	WriteThrough Mode = iota
	// WriteBack caches dirty and defers the device write to eviction,
	// Flush, or Close.
	WriteBack
)

type entry[K, V any] struct {
	node    *node.Node[K, V]
	dirty   bool
	pinCnt  int
	element *list.Element // position in the recency list
}

// Stats reports the cache's running hit/miss/eviction counters (spec.md
// §4.6).
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns Hits/(Hits+Misses), or 0 if nothing has been requested
// yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Loader reads and decodes the node at offset from the block device on a
// cache miss.
type Loader[K, V any] func(offset int64) (*node.Node[K, V], error)

// Writer encodes and writes a node to the block device.
type Writer[K, V any] func(n *node.Node[K, V]) error

// Pool is a fixed-capacity LRU cache of *node.Node[K,V], keyed by file
// offset.
type Pool[K, V any] struct {
	mu       sync.Mutex
	capacity int
	mode     Mode
	entries  map[int64]*entry[K, V]
	recency  *list.List // front = most recently used

	load  Loader[K, V]
	write Writer[K, V]

	stats  Stats
	logger *slog.Logger
}

func New[K, V any](capacity int, mode Mode, load Loader[K, V], write Writer[K, V]) *Pool[K, V] {
	return &Pool[K, V]{
		capacity: capacity,
		mode:     mode,
		entries:  make(map[int64]*entry[K, V], capacity),
		recency:  list.New(),
		load:     load,
		write:    write,
	}
}

// SetLogger overrides the pool's structured logger (spec.md's ambient
// logging stack); slog.Default() is used until this is called, the way
// tuannm99-novasql/internal/btree/meta.go calls slog.Debug directly without
// requiring a logger to be threaded through.
func (p *Pool[K, V]) SetLogger(l *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = l
}

func (p *Pool[K, V]) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

func (p *Pool[K, V]) touch(e *entry[K, V]) {
	p.recency.MoveToFront(e.element)
}

// Get returns the node at offset, loading it from the device on a miss
// (G1: a Get immediately after a Put for the same offset never does I/O,
// since putLocked below installs the entry before Get ever sees a miss for
// it).
func (p *Pool[K, V]) Get(offset int64) (*node.Node[K, V], error) {
	p.mu.Lock()
	if e, ok := p.entries[offset]; ok {
		p.stats.Hits++
		p.touch(e)
		n := e.node
		p.mu.Unlock()
		return n, nil
	}
	p.stats.Misses++
	p.mu.Unlock()

	n, err := p.load(offset)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[offset]; ok {
		// Lost a race with a concurrent Get/Put for the same offset; the
		// existing entry wins.
		p.touch(e)
		return e.node, nil
	}
	if err := p.putLocked(n, false); err != nil {
		return nil, err
	}
	return n, nil
}

// Put installs n in the cache (overwriting any existing entry for the same
// offset), evicting if the pool is over capacity afterward (G4).
func (p *Pool[K, V]) Put(n *node.Node[K, V], dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.putLocked(n, dirty)
}

func (p *Pool[K, V]) putLocked(n *node.Node[K, V], dirty bool) error {
	// Write-through always pushes a mutated node to the device immediately
	// and caches it clean; write-back only records the dirty flag and
	// defers the device write to eviction, Flush, or Close (spec.md §4.6).
	if dirty && p.mode == WriteThrough {
		if err := p.write(n); err != nil {
			return errs.Wrap(errs.IO, "bufferpool.Put", "write-through", err)
		}
		dirty = false
	}

	if e, ok := p.entries[n.Offset]; ok {
		e.node = n
		if dirty {
			e.dirty = true
		}
		p.touch(e)
		return nil
	}

	el := p.recency.PushFront(n.Offset)
	p.entries[n.Offset] = &entry[K, V]{node: n, dirty: dirty, element: el}

	return p.evictToCapacityLocked()
}

func (p *Pool[K, V]) evictToCapacityLocked() error {
	for len(p.entries) > p.capacity {
		evicted := false
		victimEl := p.recency.Back()
		for victimEl != nil {
			offset := victimEl.Value.(int64)
			e := p.entries[offset]
			// The most recently used entry is the one just installed; it is
			// never its own victim, so a Get right after a Put still hits (G1).
			if e.pinCnt > 0 || victimEl == p.recency.Front() {
				victimEl = victimEl.Prev()
				continue
			}
			if e.dirty {
				if err := p.write(e.node); err != nil {
					p.log().Error("bufferpool.evict.flush_failed", "offset", offset, "error", err)
					return errs.Wrap(errs.IO, "bufferpool.evict", "flushing dirty node before eviction", err)
				}
				p.log().Debug("bufferpool.evict.dirty_flush", "offset", offset)
			} else {
				p.log().Debug("bufferpool.evict.clean", "offset", offset)
			}
			p.recency.Remove(victimEl)
			delete(p.entries, offset)
			p.stats.Evictions++
			evicted = true
			break
		}
		if !evicted {
			// every remaining entry is pinned or is the entry just
			// installed; nothing more can be evicted right now.
			break
		}
	}
	return nil
}

// Pin prevents offset's entry from being evicted until a matching Unpin.
func (p *Pool[K, V]) Pin(offset int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[offset]; ok {
		e.pinCnt++
	}
}

// Unpin releases one pin on offset's entry.
func (p *Pool[K, V]) Unpin(offset int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[offset]; ok && e.pinCnt > 0 {
		e.pinCnt--
	}
}

// MarkDirty flags offset's cached node dirty, for write-back mode callers
// that mutate a node in place after Get.
func (p *Pool[K, V]) MarkDirty(offset int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[offset]; ok {
		e.dirty = true
	}
}

// Flush writes every dirty entry and marks it clean (G3).
func (p *Pool[K, V]) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked()
}

func (p *Pool[K, V]) flushLocked() error {
	for _, e := range p.entries {
		if e.dirty {
			if err := p.write(e.node); err != nil {
				return errs.Wrap(errs.IO, "bufferpool.Flush", "writing dirty node", err)
			}
			e.dirty = false
		}
	}
	return nil
}

// Close flushes then clears the pool (G3).
func (p *Pool[K, V]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.flushLocked(); err != nil {
		return err
	}
	p.entries = make(map[int64]*entry[K, V])
	p.recency.Init()
	return nil
}

// Invalidate drops offset from the cache without writing it, used when the
// caller has just freed that page.
func (p *Pool[K, V]) Invalidate(offset int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[offset]; ok {
		p.recency.Remove(e.element)
		delete(p.entries, offset)
	}
}

func (p *Pool[K, V]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *Pool[K, V]) Capacity() int { return p.capacity }

func (p *Pool[K, V]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
