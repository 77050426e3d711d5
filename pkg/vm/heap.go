package vm

import "sort"

type span struct {
	addr, size int
}

// heap is a first-fit allocator over RAM[base:limit]. Bookkeeping lives
// outside RAM so programs cannot corrupt it.
type heap struct {
	free []span // sorted by addr, never adjacent
	used map[int]int
}

func newHeap(base, limit int) *heap {
	return &heap{
		free: []span{{addr: base, size: limit - base}},
		used: make(map[int]int),
	}
}

func (h *heap) alloc(size int) (int, error) {
	if size <= 0 {
		return 0, ErrIllegalArgument
	}
	for i, s := range h.free {
		if s.size < size {
			continue
		}
		addr := s.addr
		if s.size == size {
			h.free = append(h.free[:i], h.free[i+1:]...)
		} else {
			h.free[i] = span{addr: s.addr + size, size: s.size - size}
		}
		h.used[addr] = size
		return addr, nil
	}
	return 0, ErrHeapExhausted
}

func (h *heap) dealloc(addr int) error {
	size, ok := h.used[addr]
	if !ok {
		return ErrBadFree
	}
	delete(h.used, addr)

	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].addr > addr })
	h.free = append(h.free, span{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = span{addr: addr, size: size}

	// merge with the following block, then the preceding one
	if i+1 < len(h.free) && h.free[i].addr+h.free[i].size == h.free[i+1].addr {
		h.free[i].size += h.free[i+1].size
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	if i > 0 && h.free[i-1].addr+h.free[i-1].size == h.free[i].addr {
		h.free[i-1].size += h.free[i].size
		h.free = append(h.free[:i], h.free[i+1:]...)
	}
	return nil
}

// sizeOf returns the size of the live block at addr.
func (h *heap) sizeOf(addr int) (int, bool) {
	size, ok := h.used[addr]
	return size, ok
}

func (h *heap) available() int {
	total := 0
	for _, s := range h.free {
		total += s.size
	}
	return total
}
