package softenc

import (
	"github.com/opd-ai/softenc/glrender"
	"github.com/opd-ai/softenc/nativebuf"
)

// ColorFormat identifies an input-port color format. The closed set and
// its numbering are a compatibility contract with the host framework.
type ColorFormat uint32

const (
	// ColorFormatUnused marks a port that carries compressed data and has
	// no raw color format. Only valid on the output port.
	ColorFormatUnused ColorFormat = iota
	// ColorFormatYUV420Planar is a luma plane followed by two quarter-size
	// chroma planes.
	ColorFormatYUV420Planar
	// ColorFormatYUV420SemiPlanar is a luma plane followed by one
	// interleaved chroma plane.
	ColorFormatYUV420SemiPlanar
	// ColorFormatOpaque is the metadata placeholder: the producer delivers
	// a descriptor referencing native storage instead of raw pixels. It is
	// only valid on the producer-facing side and is resolved to a concrete
	// format during extraction.
	ColorFormatOpaque
)

// String returns a human-readable format name.
func (f ColorFormat) String() string {
	switch f {
	case ColorFormatUnused:
		return "Unused"
	case ColorFormatYUV420Planar:
		return "YUV420Planar"
	case ColorFormatYUV420SemiPlanar:
		return "YUV420SemiPlanar"
	case ColorFormatOpaque:
		return "Opaque"
	default:
		return "Unknown"
	}
}

// IsRaw reports whether the format carries pixels directly in the buffer.
func (f ColorFormat) IsRaw() bool {
	return f == ColorFormatYUV420Planar || f == ColorFormatYUV420SemiPlanar
}

// supportedColorFormats is the fixed preference order reported to hosts.
var supportedColorFormats = []ColorFormat{
	ColorFormatYUV420Planar,
	ColorFormatYUV420SemiPlanar,
	ColorFormatOpaque,
}

// PortIndex selects one of the encoder's two ports.
type PortIndex uint32

const (
	// InputPort receives raw or metadata-wrapped frames.
	InputPort PortIndex = 0
	// OutputPort emits encoded data.
	OutputPort PortIndex = 1
)

// FrameGeometry is the buffer layout contract for the input port. Stride
// and SliceHeight track Width and Height; the base keeps them equal, a
// concrete adapter with alignment requirements may widen them.
type FrameGeometry struct {
	Width       int32
	Height      int32
	Stride      int32
	SliceHeight int32
}

// BufferSizes is the pair of minimum buffer capacities derived from the
// current geometry and format.
type BufferSizes struct {
	Input  uint32
	Output uint32
}

// ProfileLevel is one supported profile/level pair of the concrete encoder.
type ProfileLevel struct {
	Profile uint32
	Level   uint32
}

// ExtensionIndex identifies a host-discoverable extension.
type ExtensionIndex uint32

// ExtensionStoreMetadataInBuffers is the metadata-mode toggle extension.
const ExtensionStoreMetadataInBuffers ExtensionIndex = 1

// Extension names recognized by ExtensionIndex. The strings are a
// compatibility contract with hosts.
const (
	extensionNameStoreMetadata  = "OMX.google.android.index.storeMetaDataInBuffers"
	extensionNameStoreANWBuffer = "OMX.google.android.index.storeANWBufferInMetadata"
)

// Platform is the capability set resolved once at construction from the
// platform name. It replaces per-call platform queries: behavior branches
// on these immutable fields only.
type Platform struct {
	// Name is the resolved platform identifier.
	Name string
	// SupportsDirectMapping is set when native buffers can be CPU-mapped
	// reliably for every supported format.
	SupportsDirectMapping bool
	// RequiresGPUFallback is set when flexible-YUV and packed-RGB native
	// buffers must be extracted through the GPU readback path.
	RequiresGPUFallback bool
	// SurfaceIsBGR flips the assumed channel order of packed-RGB surfaces.
	SurfaceIsBGR bool
}

// ResolvePlatform maps a platform name to its capability set. Unknown names
// resolve to the default capabilities: direct mapping, no GPU fallback.
func ResolvePlatform(name string) Platform {
	switch name {
	case "powervr":
		return Platform{
			Name:                name,
			RequiresGPUFallback: true,
		}
	case "mesa", "emulation":
		return Platform{
			Name:                  name,
			SupportsDirectMapping: true,
		}
	default:
		return Platform{
			Name:                  "default",
			SupportsDirectMapping: true,
		}
	}
}

// Config carries the construction-time settings of an encoder adapter.
type Config struct {
	// Name is the component name, used for log correlation.
	Name string
	// Role is the component role the host negotiates against.
	Role string
	// Coding identifies the output compression type of the concrete
	// encoder (for example "avc" or "vp8"). Opaque to the base.
	Coding string
	// Width and Height are the initial frame dimensions.
	Width  int32
	Height int32
	// ProfileLevels enumerates the profile/level pairs the concrete
	// encoder supports.
	ProfileLevels []ProfileLevel
	// MinOutputBufferSize floors the output buffer size. Zero selects the
	// default of one uncompressed macroblock equivalent.
	MinOutputBufferSize uint32
	// MinCompressionRatio divides the raw frame size to bound the output
	// buffer size. Zero selects 1 (output as large as the input).
	MinCompressionRatio uint32
	// PlatformName selects the platform capability set. Empty resolves to
	// the default platform.
	PlatformName string
	// Mapper resolves and brackets native buffers for metadata input.
	Mapper nativebuf.Mapper
	// Fences resolves fence descriptors embedded in metadata input.
	// Optional; without it fences are treated as already signalled.
	Fences *nativebuf.FenceTable
	// RenderDriver overrides the GPU driver used by the readback path.
	// Nil loads the platform driver on first need. Tests inject fakes.
	RenderDriver glrender.Driver
}
