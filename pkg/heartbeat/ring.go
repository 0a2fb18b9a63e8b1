package heartbeat

// Ring is a fixed-capacity circular buffer. Once full, Push overwrites the
// oldest element.
type Ring[T any] struct {
	buf   []T
	start int
	n     int
}

// NewRing returns a ring holding up to capacity elements. capacity must be > 0.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("heartbeat: ring capacity must be positive")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v and reports whether the ring is full afterwards.
func (r *Ring[T]) Push(v T) bool {
	r.buf[r.Cursor()] = v
	if r.n < len(r.buf) {
		r.n++
	} else {
		r.start = (r.start + 1) % len(r.buf)
	}
	return r.Full()
}

// Cursor is the slot the next Push writes to, always in [0, Cap()).
func (r *Ring[T]) Cursor() int { return (r.start + r.n) % len(r.buf) }

func (r *Ring[T]) Len() int   { return r.n }
func (r *Ring[T]) Cap() int   { return len(r.buf) }
func (r *Ring[T]) Full() bool { return r.n == len(r.buf) }

// Do calls fn for every element, oldest first.
func (r *Ring[T]) Do(fn func(T)) {
	for i := 0; i < r.n; i++ {
		fn(r.buf[(r.start+i)%len(r.buf)])
	}
}

// Items returns a copy of the elements, oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, 0, r.n)
	r.Do(func(v T) { out = append(out, v) })
	return out
}

// Reset drops all elements and rewinds the cursor to slot 0.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start, r.n = 0, 0
}
