// Package refcount implements intrusive reference counting for scene objects.
//
// Every object shared between the host scene graph and the scope renderer
// embeds a Count. Ownership is expressed only through Acquire/Release pairs
// (or a Handle, which performs them), never by copying the referent.
package refcount

import "sync/atomic"

// Count is the embedded reference count. The zero value holds no references.
type Count struct {
	n atomic.Int32
}

func (c *Count) refCount() *Count { return c }

// Refs returns the current number of references.
func (c *Count) Refs() int32 { return c.n.Load() }

// Counted is implemented by every type that embeds a Count.
type Counted interface {
	refCount() *Count
}

// Deleter is implemented by referents that need to free resources once the
// last reference is released. DeleteThis is called exactly once.
type Deleter interface {
	DeleteThis()
}

// Ptr constrains P to be a pointer to T that embeds a Count.
type Ptr[T any] interface {
	*T
	Counted
}

// Acquire adds a reference to p and returns it. It is a no-op on nil.
func Acquire[T any, P Ptr[T]](p P) P {
	if p != nil {
		p.refCount().n.Add(1)
	}
	return p
}

// Release drops a reference to p, destroying it when the count reaches zero.
// It is a no-op on nil, and on a referent whose count is already zero (so a
// referent can never be destroyed twice).
func Release[T any, P Ptr[T]](p P) {
	if p == nil {
		return
	}
	release(p.refCount(), p)
}

// AcquireCounted is Acquire for values only known through an interface.
// c must not be a nil pointer wrapped in a non-nil interface.
func AcquireCounted(c Counted) {
	if c != nil {
		c.refCount().n.Add(1)
	}
}

// ReleaseCounted is Release for values only known through an interface.
func ReleaseCounted(c Counted) {
	if c == nil {
		return
	}
	release(c.refCount(), c)
}

func release(c *Count, referent any) {
	for {
		n := c.n.Load()
		if n <= 0 {
			return
		}
		if c.n.CompareAndSwap(n, n-1) {
			if n == 1 {
				if d, ok := referent.(Deleter); ok {
					d.DeleteThis()
				}
			}
			return
		}
	}
}

// Handle holds at most one reference to a P. The zero Handle is empty.
type Handle[T any, P Ptr[T]] struct {
	p P
}

// New returns a Handle holding a freshly acquired reference to p.
func New[T any, P Ptr[T]](p P) Handle[T, P] {
	return Handle[T, P]{p: Acquire[T](p)}
}

// Get returns the referent, or nil.
func (h *Handle[T, P]) Get() P { return h.p }

// Reset re-homes h to p. The new referent is acquired before the old one is
// released, so resetting to the current referent (or to one that is only
// kept alive by the old reference) never destroys it.
func (h *Handle[T, P]) Reset(p P) {
	old := h.p
	if p == old {
		return
	}
	Acquire[T](p)
	h.p = p
	Release[T](old)
}

// Clear releases the held reference, leaving h empty.
func (h *Handle[T, P]) Clear() { h.Reset(nil) }
