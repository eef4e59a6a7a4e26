package nativebuf

import "fmt"

// Handle is an opaque reference to producer-owned pixel storage. Handles are
// issued by a Registry and are only meaningful to the Registry that issued
// them.
type Handle uint64

// PixelFormat identifies the native layout of a buffer's pixel storage.
// The numeric values match the platform graphics HAL and are part of the
// compatibility contract with producers.
type PixelFormat uint32

const (
	// FormatRGBA8888 is packed 32-bit RGBA, 8 bits per channel.
	FormatRGBA8888 PixelFormat = 1
	// FormatRGBX8888 is packed 32-bit RGB with an ignored fourth byte.
	FormatRGBX8888 PixelFormat = 2
	// FormatBGRA8888 is packed 32-bit BGRA, 8 bits per channel.
	FormatBGRA8888 PixelFormat = 5
	// FormatNV21 is YUV 4:2:0 semiplanar with interleaved V/U chroma
	// (YCrCb 420 SP).
	FormatNV21 PixelFormat = 0x11
	// FormatYCbCr420Flex is the flexible YUV 4:2:0 format whose concrete
	// plane layout is only known after LockYCbCr.
	FormatYCbCr420Flex PixelFormat = 0x23
	// FormatYV12 is YUV 4:2:0 planar with the V plane before the U plane.
	FormatYV12 PixelFormat = 0x32315659
)

// IsYUV reports whether the format stores chroma-subsampled YUV pixels.
func (f PixelFormat) IsYUV() bool {
	switch f {
	case FormatYV12, FormatNV21, FormatYCbCr420Flex:
		return true
	default:
		return false
	}
}

// IsRGB32 reports whether the format is a packed 32-bit RGB variant.
func (f PixelFormat) IsRGB32() bool {
	switch f {
	case FormatRGBA8888, FormatRGBX8888, FormatBGRA8888:
		return true
	default:
		return false
	}
}

// IsBGR reports whether the channel order is blue-first.
func (f PixelFormat) IsBGR() bool {
	return f == FormatBGRA8888
}

// String returns a human-readable format name.
func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8888:
		return "RGBA8888"
	case FormatRGBX8888:
		return "RGBX8888"
	case FormatBGRA8888:
		return "BGRA8888"
	case FormatNV21:
		return "NV21"
	case FormatYCbCr420Flex:
		return "YCbCr420Flex"
	case FormatYV12:
		return "YV12"
	default:
		return fmt.Sprintf("PixelFormat(%#x)", uint32(f))
	}
}

// Buffer describes one registered native buffer. Stride is in pixels, the
// way the windowing system reports it; StrideBytes applies the byte-width of
// the format. Data is the backing storage and remains owned by the
// registering host.
type Buffer struct {
	Handle Handle
	Format PixelFormat
	Width  int32
	Height int32
	Stride int32
	Data   []byte
}

// StrideBytes converts the pixel stride to a byte stride. YUV formats use
// one byte per luma sample; the packed RGB formats use four.
func (b *Buffer) StrideBytes() int {
	if b.Format.IsYUV() {
		return int(b.Stride)
	}
	return int(b.Stride) * 4
}
