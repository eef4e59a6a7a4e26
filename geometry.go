package softenc

import "github.com/opd-ai/softenc/metadata"

// Encoder defaults, applied when Config leaves the fields zero.
const (
	defaultBitrate = 192000
	// Framerate is carried in Q16 fixed point, frames per second.
	defaultFramerateQ16 = 30 << 16
	// One uncompressed macroblock equivalent.
	defaultMinOutputBufferSize = 384
	defaultMinCompressionRatio = 1
)

// ComputeGeometry derives the minimum input and output buffer sizes from
// the frame dimensions, the active color format, and the output bounds.
// Pure arithmetic: callers reject non-positive dimensions upstream.
//
// Raw formats need stride*sliceHeight*3/2 bytes on the input side (4:2:0
// subsampling). The opaque format needs only room for the larger of the two
// metadata descriptor shapes. The output side holds at least minOutputSize
// even under aggressive compression-ratio assumptions.
func ComputeGeometry(width, height int32, colorFormat ColorFormat, minOutputSize, minCompressionRatio uint32) BufferSizes {
	if minCompressionRatio == 0 {
		minCompressionRatio = defaultMinCompressionRatio
	}

	stride, sliceHeight := width, height
	rawSize := uint32(stride) * uint32(sliceHeight) * 3 / 2

	var sizes BufferSizes
	if colorFormat == ColorFormatOpaque {
		sizes.Input = metadata.MaxDescriptorSize
	} else {
		sizes.Input = rawSize
	}

	sizes.Output = rawSize / minCompressionRatio
	if sizes.Output < minOutputSize {
		sizes.Output = minOutputSize
	}
	return sizes
}

// updateBufferSizes recomputes the cached buffer sizes from the current
// geometry inputs. Called after every mutation of width, height, framerate,
// bitrate, or color format so the sizes are never stale.
func (e *Encoder) updateBufferSizes() {
	e.sizes = ComputeGeometry(e.width, e.height, e.colorFormat, e.minOutputBufferSize, e.minCompressionRatio)
}
