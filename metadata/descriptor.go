package metadata

import (
	"encoding/binary"
	"errors"
)

// Descriptor discriminator tags. These values are part of the wire contract
// with buffer producers.
const (
	// TagGrallocSource identifies the legacy bare-handle descriptor shape.
	TagGrallocSource uint32 = 1
	// TagNativeWindowBuffer identifies the native-window descriptor shape
	// carrying a fence descriptor alongside the buffer handle.
	TagNativeWindowBuffer uint32 = 2
)

// Descriptor sizes in bytes. Fixed by the wire contract.
const (
	// GrallocDescriptorSize is the size of the legacy gralloc shape.
	GrallocDescriptorSize = 12
	// NativeDescriptorSize is the size of the native-window shape.
	NativeDescriptorSize = 16
	// MaxDescriptorSize is the larger of the two descriptor shapes. Input
	// buffers in metadata mode must be at least this large.
	MaxDescriptorSize = NativeDescriptorSize

	tagSize       = 4
	fenceFDOffset = 12
)

// Sentinel errors for descriptor decoding.
var (
	// ErrUnsupportedKind indicates the discriminator tag matches neither
	// supported descriptor shape.
	ErrUnsupportedKind = errors.New("unsupported metadata kind")

	// ErrTruncated indicates the buffer is too short for the descriptor
	// shape its tag identifies.
	ErrTruncated = errors.New("truncated metadata descriptor")
)

// Kind identifies which descriptor shape was decoded.
type Kind uint32

const (
	// KindGralloc is the legacy bare-handle shape.
	KindGralloc Kind = Kind(TagGrallocSource)
	// KindNativeWindow is the native-window shape with an embedded fence.
	KindNativeWindow Kind = Kind(TagNativeWindowBuffer)
)

// String returns a human-readable name for the descriptor kind.
func (k Kind) String() string {
	switch k {
	case KindGralloc:
		return "gralloc"
	case KindNativeWindow:
		return "native-window"
	default:
		return "unknown"
	}
}

// Descriptor is the decoded form of a metadata buffer. It is a tagged union:
// FenceFD is only meaningful for KindNativeWindow and is -1 when no fence is
// attached.
type Descriptor struct {
	Kind    Kind
	Handle  uint64
	FenceFD int32
}

// Decode parses the descriptor at the start of src. It reads only the bytes
// the identified shape requires and never reads past len(src).
func Decode(src []byte) (Descriptor, error) {
	if len(src) < tagSize {
		return Descriptor{}, ErrTruncated
	}

	tag := binary.LittleEndian.Uint32(src)
	switch tag {
	case TagNativeWindowBuffer:
		if len(src) < NativeDescriptorSize {
			return Descriptor{}, ErrTruncated
		}
		return Descriptor{
			Kind:    KindNativeWindow,
			Handle:  binary.LittleEndian.Uint64(src[tagSize:]),
			FenceFD: int32(binary.LittleEndian.Uint32(src[fenceFDOffset:])),
		}, nil

	case TagGrallocSource:
		if len(src) < GrallocDescriptorSize {
			return Descriptor{}, ErrTruncated
		}
		return Descriptor{
			Kind:    KindGralloc,
			Handle:  binary.LittleEndian.Uint64(src[tagSize:]),
			FenceFD: -1,
		}, nil

	default:
		return Descriptor{}, ErrUnsupportedKind
	}
}

// EncodeNativeWindow builds a native-window descriptor referencing handle.
// Pass fenceFD -1 when no fence is attached.
func EncodeNativeWindow(handle uint64, fenceFD int32) []byte {
	buf := make([]byte, NativeDescriptorSize)
	binary.LittleEndian.PutUint32(buf, TagNativeWindowBuffer)
	binary.LittleEndian.PutUint64(buf[tagSize:], handle)
	binary.LittleEndian.PutUint32(buf[fenceFDOffset:], uint32(fenceFD))
	return buf
}

// EncodeGralloc builds a legacy gralloc descriptor referencing handle.
func EncodeGralloc(handle uint64) []byte {
	buf := make([]byte, GrallocDescriptorSize)
	binary.LittleEndian.PutUint32(buf, TagGrallocSource)
	binary.LittleEndian.PutUint64(buf[tagSize:], handle)
	return buf
}

// ConsumeFence invalidates the fence field of a native-window descriptor in
// place, marking the fence as consumed. A fence is consumed at most once;
// callers invoke this immediately after taking ownership of the fence. It is
// a no-op for descriptors that are not the native-window shape.
func ConsumeFence(src []byte) {
	if len(src) < NativeDescriptorSize {
		return
	}
	if binary.LittleEndian.Uint32(src) != TagNativeWindowBuffer {
		return
	}
	binary.LittleEndian.PutUint32(src[fenceFDOffset:], ^uint32(0))
}
