package softenc

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/softenc/convert"
	"github.com/opd-ai/softenc/glrender"
	"github.com/opd-ai/softenc/metadata"
	"github.com/opd-ai/softenc/nativebuf"
)

// resolvedSource is the outcome of interpreting one metadata descriptor:
// which storage to read, how it is laid out, and whether the extraction
// must detour through the GPU readback path.
type resolvedSource struct {
	handle      nativebuf.Handle
	format      nativebuf.PixelFormat
	strideBytes int
	vstride     int32
	useGPU      bool
}

// ExtractGraphicBuffer resolves a metadata-wrapped input buffer to pixel
// storage and converts it into planar YUV 4:2:0 at the start of dst. It
// returns the filled planar view, sliced to the frame size.
//
// The pipeline per the extraction contract: decode the descriptor once,
// wait on an attached fence (bounded) and consume it, verify destination
// capacity before anything is written, bracket the native storage with one
// lock/unlock pair, and dispatch on the native pixel format. On platforms
// whose mapping path is unreliable the flexible-YUV and packed-RGB formats
// route through the GPU readback path instead of being CPU-mapped.
//
// Failures abort this frame only; encoder state is left intact.
func (e *Encoder) ExtractGraphicBuffer(dst, src []byte, width, height int32) ([]byte, error) {
	if e.closed {
		return nil, ErrEncoderClosed
	}

	desc, err := metadata.Decode(src)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Encoder.ExtractGraphicBuffer",
			"instance": e.id,
			"src_size": len(src),
			"error":    err.Error(),
		}).Error("Failed to decode metadata descriptor")
		return nil, err
	}

	resolved, err := e.resolveSource(desc, src, width, height)
	if err != nil {
		return nil, err
	}

	dstStride := int(width)
	dstVStride := int(height)
	neededSize := convert.PlanarFrameSize(dstStride, dstVStride, int(width), int(height))
	if len(dst) < neededSize {
		logrus.WithFields(logrus.Fields{
			"function":    "Encoder.ExtractGraphicBuffer",
			"instance":    e.id,
			"dst_size":    len(dst),
			"needed_size": neededSize,
		}).Error("Destination buffer is too small")
		return nil, fmt.Errorf("%w: %d < %d", ErrDestinationTooSmall, len(dst), neededSize)
	}

	if resolved.useGPU {
		if err := e.renderExtract(resolved, dst, width, height); err != nil {
			return nil, err
		}
		return dst[:neededSize], nil
	}

	if err := e.mappedExtract(resolved, dst, dstStride, dstVStride, width, height); err != nil {
		return nil, err
	}
	return dst[:neededSize], nil
}

// resolveSource interprets the decoded descriptor, waits on an embedded
// fence, and decides the access route for the underlying storage.
func (e *Encoder) resolveSource(desc metadata.Descriptor, src []byte, width, height int32) (resolvedSource, error) {
	var r resolvedSource

	switch desc.Kind {
	case metadata.KindNativeWindow:
		buf, err := e.mapper.Resolve(nativebuf.Handle(desc.Handle))
		if err != nil {
			return r, fmt.Errorf("resolving native buffer %#x: %w", desc.Handle, err)
		}
		r.handle = buf.Handle
		r.format = buf.Format
		r.vstride = buf.Height

		// Stride arrives in native units. Platforms routed through the
		// GPU readback path report it in pixels for every format.
		if e.platform.RequiresGPUFallback || !buf.Format.IsYUV() {
			r.strideBytes = int(buf.Stride) * 4
		} else {
			r.strideBytes = int(buf.Stride)
		}

		if desc.FenceFD >= 0 {
			if err := e.waitFence(desc.FenceFD, src); err != nil {
				return r, err
			}
		}

	case metadata.KindGralloc:
		// Legacy shape: the descriptor carries no format information and
		// there is no way to recover the true one without the windowing
		// system. Assume packed RGBA and a width-derived stride.
		r.handle = nativebuf.Handle(desc.Handle)
		r.format = nativebuf.FormatRGBA8888
		r.strideBytes = int(width) * 4
		r.vstride = height

	default:
		return r, ErrUnsupportedMetadataKind
	}

	r.useGPU = e.platform.RequiresGPUFallback &&
		(r.format == nativebuf.FormatYCbCr420Flex || r.format.IsRGB32())
	return r, nil
}

// waitFence takes ownership of the descriptor's fence, invalidates it in
// the source bytes, and blocks until it signals or the bounded wait
// expires.
func (e *Encoder) waitFence(fd int32, src []byte) error {
	var fence *nativebuf.Fence
	if e.fences != nil {
		fence = e.fences.Take(fd)
	}
	metadata.ConsumeFence(src)

	if fence == nil {
		return nil
	}
	if err := fence.Wait(nativebuf.WaitTimeout); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Encoder.waitFence",
			"instance": e.id,
			"fence_fd": fd,
			"timeout":  nativebuf.WaitTimeout.String(),
		}).Error("Timed out waiting on input fence")
		return err
	}
	return nil
}

// mappedExtract runs the CPU route: one lock/unlock bracket over the native
// storage and a direct conversion into dst.
func (e *Encoder) mappedExtract(r resolvedSource, dst []byte, dstStride, dstVStride int, width, height int32) error {
	switch r.format {
	case nativebuf.FormatYV12:
		// YVU planar: V plane first, then U, half-luma chroma stride.
		m, err := e.mapper.Lock(r.handle)
		if err != nil {
			return fmt.Errorf("locking buffer %#x: %w", r.handle, err)
		}
		defer e.unlock(r.handle)

		crOff := r.strideBytes * int(r.vstride)
		cbOff := crOff + (r.strideBytes>>1)*(int(r.vstride)>>1)
		planes := &convert.YCbCrPlanes{
			Y:          m.Bytes,
			Cr:         m.Bytes[crOff:],
			Cb:         m.Bytes[cbOff:],
			YStride:    r.strideBytes,
			CStride:    r.strideBytes >> 1,
			ChromaStep: 1,
		}
		convert.FlexYUVToPlanar(dst, dstStride, dstVStride, planes, int(width), int(height))

	case nativebuf.FormatNV21:
		// YVU semiplanar: one interleaved V/U plane after the luma plane.
		m, err := e.mapper.Lock(r.handle)
		if err != nil {
			return fmt.Errorf("locking buffer %#x: %w", r.handle, err)
		}
		defer e.unlock(r.handle)

		crOff := r.strideBytes * int(r.vstride)
		planes := &convert.YCbCrPlanes{
			Y:          m.Bytes,
			Cr:         m.Bytes[crOff:],
			Cb:         m.Bytes[crOff+1:],
			YStride:    r.strideBytes,
			CStride:    r.strideBytes,
			ChromaStep: 2,
		}
		convert.FlexYUVToPlanar(dst, dstStride, dstVStride, planes, int(width), int(height))

	case nativebuf.FormatYCbCr420Flex:
		planes, err := e.mapper.LockYCbCr(r.handle)
		if err != nil {
			return fmt.Errorf("locking flexible buffer %#x: %w", r.handle, err)
		}
		defer e.unlock(r.handle)

		convert.FlexYUVToPlanar(dst, dstStride, dstVStride, &convert.YCbCrPlanes{
			Y:          planes.Y,
			Cb:         planes.Cb,
			Cr:         planes.Cr,
			YStride:    planes.YStride,
			CStride:    planes.CStride,
			ChromaStep: planes.ChromaStep,
		}, int(width), int(height))

	case nativebuf.FormatRGBX8888, nativebuf.FormatRGBA8888, nativebuf.FormatBGRA8888:
		m, err := e.mapper.Lock(r.handle)
		if err != nil {
			return fmt.Errorf("locking buffer %#x: %w", r.handle, err)
		}
		defer e.unlock(r.handle)

		convert.RGB32ToPlanar(dst, dstStride, dstVStride, m.Bytes,
			int(width), int(height), r.strideBytes, e.bgrOrder(r.format))

	default:
		logrus.WithFields(logrus.Fields{
			"function":     "Encoder.mappedExtract",
			"instance":     e.id,
			"pixel_format": r.format.String(),
		}).Error("Unsupported native pixel format")
		return fmt.Errorf("%w: %s", ErrUnsupportedPixelFormat, r.format)
	}

	return nil
}

// renderExtract runs the GPU route: rasterize the native buffer into the
// staging buffer through the readback path, then convert the staging RGBA
// pixels into dst. No CPU mapping of the native storage happens here.
func (e *Encoder) renderExtract(r resolvedSource, dst []byte, width, height int32) error {
	if err := e.ensureRenderPath(r, width, height); err != nil {
		return err
	}

	if need := int(width) * int(height) * 4; len(e.staging) < need {
		e.staging = make([]byte, need)
	}

	if err := e.render.Render(uint64(r.handle), width, height, e.staging); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Encoder.renderExtract",
			"instance": e.id,
			"handle":   r.handle,
			"error":    err.Error(),
		}).Error("GPU readback failed")
		return err
	}

	// The staging buffer is tightly packed RGBA rows.
	convert.RGB32ToPlanar(dst, int(width), int(height), e.staging,
		int(width), int(height), int(width)*4, e.bgrOrder(r.format))
	return nil
}

// ensureRenderPath creates and initializes the render path on first need.
// The shader variant is fixed by the first buffer routed through it: the
// external-image sampler for the opaque platform format, the plain 2D
// sampler for packed RGB.
func (e *Encoder) ensureRenderPath(r resolvedSource, width, height int32) error {
	if e.render != nil {
		if !e.render.Ready() {
			return ErrGPUPathUnavailable
		}
		return nil
	}

	drv := e.renderDriver
	if drv == nil {
		loaded, err := glrender.LoadDriver()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Encoder.ensureRenderPath",
				"instance": e.id,
				"error":    err.Error(),
			}).Error("Failed to load GPU driver")
			// Leave a permanently unavailable path behind so later frames
			// fail fast instead of reloading.
			e.render = glrender.NewPath(nil)
			e.render.Close()
			return ErrGPUPathUnavailable
		}
		drv = loaded
	}

	e.render = glrender.NewPath(drv)
	external := r.format == nativebuf.FormatYCbCr420Flex
	return e.render.Init(width, height, external)
}

// bgrOrder decides the channel order argument for the RGB conversion,
// folding in the platform's surface order quirk.
func (e *Encoder) bgrOrder(format nativebuf.PixelFormat) bool {
	bgr := format.IsBGR()
	if e.platform.SurfaceIsBGR {
		bgr = !bgr
	}
	return bgr
}

// unlock closes the lock bracket, logging rather than masking the
// conversion result when the unlock itself fails.
func (e *Encoder) unlock(h nativebuf.Handle) {
	if err := e.mapper.Unlock(h); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Encoder.unlock",
			"instance": e.id,
			"handle":   h,
			"error":    err.Error(),
		}).Error("Failed to unlock native buffer")
	}
}
