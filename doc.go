// Package softenc is the shared base for video encoder adapters in a
// media-codec plugin framework.
//
// Concrete encoder components embed or wrap an Encoder to get the part of
// the job that is common to every adapter: accepting raw frames in whatever
// representation the upstream producer supplies and normalizing them into
// the planar YUV 4:2:0 layout an encoder core consumes. The surrounding
// port negotiation protocol, buffer-queue lifecycle, and component
// registration belong to the host framework and are not implemented here;
// this package exposes only their touch points.
//
// # Input representations
//
// Producers deliver frames in one of four shapes:
//
//   - Planar YUV 4:2:0, consumed as-is.
//   - Semiplanar YUV 4:2:0, de-interleaved into planar.
//   - Packed 32-bit RGB/BGR, converted with BT.601 coefficients.
//   - An opaque metadata descriptor referencing producer-owned native
//     storage, resolved through the buffer extraction pipeline.
//
// # Buffer extraction
//
// ExtractGraphicBuffer is the heart of the package. It decodes the metadata
// descriptor, waits on an attached fence when one is present, brackets the
// native storage with a lock/unlock pair, and dispatches to the matching
// conversion routine in the convert package. On platforms whose
// buffer-mapping path is unreliable for a format, the frame is instead
// rasterized through the glrender readback path and converted from the
// staging pixels.
//
//	enc, err := softenc.NewEncoder(softenc.Config{
//	    Name:   "encoder.avc",
//	    Role:   "video_encoder.avc",
//	    Coding: "avc",
//	    Width:  640,
//	    Height: 480,
//	    Mapper: registry,
//	})
//	if err != nil {
//	    return err
//	}
//	defer enc.Close()
//
//	frame, err := enc.ExtractGraphicBuffer(dst, src, 640, 480)
//
// # Geometry
//
// ComputeGeometry derives input and output buffer sizes from the frame
// dimensions, the active color format, and the encoder's compression-ratio
// floor. The encoder recomputes sizes on every dimension, framerate,
// bitrate, or color-format change; they are never served stale.
//
// # Concurrency
//
// An Encoder is single-threaded by contract: all negotiation and extraction
// calls run on the thread that owns the host's buffer-delivery callback.
// No internal worker goroutines exist, and no state is shared across
// encoder instances. The only blocking point is the bounded fence wait
// during extraction.
package softenc
