package nativebuf

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Sentinel errors for buffer access.
var (
	// ErrUnknownHandle indicates the handle was not issued by this registry
	// or the buffer has been unregistered.
	ErrUnknownHandle = errors.New("unknown buffer handle")

	// ErrAlreadyLocked indicates a second lock was attempted while a bracket
	// is open on the same handle.
	ErrAlreadyLocked = errors.New("buffer is already locked")

	// ErrNotLocked indicates Unlock was called without an open bracket.
	ErrNotLocked = errors.New("buffer is not locked")

	// ErrNotFlexibleYUV indicates LockYCbCr was called on a buffer whose
	// format does not expose a per-plane layout.
	ErrNotFlexibleYUV = errors.New("buffer format has no flexible YUV layout")
)

// Mapping is a read-only view over a locked buffer's packed pixel storage.
// It is only valid between the Lock call that produced it and the matching
// Unlock; Unlock empties Bytes so stale views fail loudly.
type Mapping struct {
	Bytes []byte
}

// YCbCrMapping is a read-only per-plane view over a locked flexible-YUV
// buffer. ChromaStep is the byte distance between horizontally adjacent
// chroma samples: 1 for planar layouts, 2 for interleaved ones.
type YCbCrMapping struct {
	Y          []byte
	Cb         []byte
	Cr         []byte
	YStride    int
	CStride    int
	ChromaStep int
}

// Mapper resolves handles to buffers and brackets read access to their
// storage. The extraction path depends on this interface rather than on
// Registry so hosts can substitute their own buffer management.
type Mapper interface {
	// Resolve returns the buffer description for a handle without locking.
	Resolve(h Handle) (*Buffer, error)
	// Lock opens a read bracket and returns a packed byte view.
	Lock(h Handle) (*Mapping, error)
	// LockYCbCr opens a read bracket and returns a per-plane view. Only
	// flexible-YUV buffers support this.
	LockYCbCr(h Handle) (*YCbCrMapping, error)
	// Unlock closes the bracket opened by Lock or LockYCbCr and
	// invalidates the returned view.
	Unlock(h Handle) error
}

type lockState struct {
	mapping *Mapping
	planes  *YCbCrMapping
}

// Registry is the host-side table of native buffers. It implements Mapper.
// All methods are safe for concurrent use, although a single buffer is only
// ever locked by one extraction call at a time.
type Registry struct {
	mu      sync.Mutex
	next    Handle
	buffers map[Handle]*Buffer
	locked  map[Handle]*lockState
}

// NewRegistry creates an empty buffer registry.
func NewRegistry() *Registry {
	return &Registry{
		buffers: make(map[Handle]*Buffer),
		locked:  make(map[Handle]*lockState),
	}
}

// Register adds a buffer and returns the handle producers should embed in
// metadata descriptors. If buf.Handle is zero a fresh handle is issued.
func (r *Registry) Register(buf *Buffer) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if buf.Handle == 0 {
		r.next++
		buf.Handle = r.next
	}
	r.buffers[buf.Handle] = buf

	logrus.WithFields(logrus.Fields{
		"function": "Registry.Register",
		"handle":   buf.Handle,
		"format":   buf.Format.String(),
		"width":    buf.Width,
		"height":   buf.Height,
		"stride":   buf.Stride,
	}).Debug("Registered native buffer")

	return buf.Handle
}

// Unregister removes a buffer. An open lock bracket is abandoned.
func (r *Registry) Unregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buffers, h)
	delete(r.locked, h)
}

// Resolve returns the buffer description for a handle.
func (r *Registry) Resolve(h Handle) (*Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf, ok := r.buffers[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return buf, nil
}

// Lock opens a read bracket on the buffer and returns a packed byte view.
func (r *Registry) Lock(h Handle) (*Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf, ok := r.buffers[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	if _, open := r.locked[h]; open {
		return nil, ErrAlreadyLocked
	}

	m := &Mapping{Bytes: buf.Data}
	r.locked[h] = &lockState{mapping: m}
	return m, nil
}

// LockYCbCr opens a read bracket on a flexible-YUV buffer and returns its
// per-plane layout. Flexible buffers registered here store their planes
// contiguously: a stride-wide luma plane followed by half-stride Cb and Cr
// planes with unit chroma step.
func (r *Registry) LockYCbCr(h Handle) (*YCbCrMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf, ok := r.buffers[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	if _, open := r.locked[h]; open {
		return nil, ErrAlreadyLocked
	}
	if buf.Format != FormatYCbCr420Flex {
		return nil, ErrNotFlexibleYUV
	}

	ystride := int(buf.Stride)
	cstride := ystride >> 1
	ySize := ystride * int(buf.Height)
	cSize := cstride * int(buf.Height>>1)

	p := &YCbCrMapping{
		Y:          buf.Data[:ySize],
		Cb:         buf.Data[ySize : ySize+cSize],
		Cr:         buf.Data[ySize+cSize : ySize+2*cSize],
		YStride:    ystride,
		CStride:    cstride,
		ChromaStep: 1,
	}
	r.locked[h] = &lockState{planes: p}
	return p, nil
}

// Unlock closes the bracket on the handle and invalidates the view handed
// out by the matching Lock or LockYCbCr.
func (r *Registry) Unlock(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, open := r.locked[h]
	if !open {
		if _, ok := r.buffers[h]; !ok {
			return ErrUnknownHandle
		}
		return ErrNotLocked
	}

	if st.mapping != nil {
		st.mapping.Bytes = nil
	}
	if st.planes != nil {
		st.planes.Y = nil
		st.planes.Cb = nil
		st.planes.Cr = nil
	}
	delete(r.locked, h)
	return nil
}
