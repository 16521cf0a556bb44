package stats

// Ring is a fixed-capacity FIFO sample window. When full, pushing evicts
// the oldest sample. Not safe for concurrent use; the aggregator guards it.
type Ring struct {
	buf   []float64
	head  int
	count int
	sum   float64
}

// NewRing creates a ring with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Push adds a sample, evicting the oldest when full.
func (r *Ring) Push(v float64) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		r.sum += v
		return
	}
	r.sum -= r.buf[r.head]
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	r.sum += v
}

// Mean returns the arithmetic mean over the window, 0 when empty.
func (r *Ring) Mean() float64 {
	if r.count == 0 {
		return 0
	}
	return r.sum / float64(r.count)
}

// Len returns the number of samples currently held.
func (r *Ring) Len() int {
	return r.count
}
