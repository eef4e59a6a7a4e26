package softenc

import (
	"errors"

	"github.com/opd-ai/softenc/glrender"
	"github.com/opd-ai/softenc/metadata"
	"github.com/opd-ai/softenc/nativebuf"
)

// Sentinel errors for encoder base operations.
// These errors enable reliable classification using errors.Is().

// Negotiation errors. They are returned synchronously to the negotiation
// caller and never change encoder state.
var (
	// ErrBadParameter indicates a malformed or undersized negotiation value.
	ErrBadParameter = errors.New("bad parameter")

	// ErrUnsupportedSetting indicates the requested format or compression
	// combination is not implemented.
	ErrUnsupportedSetting = errors.New("unsupported setting")

	// ErrBadPortIndex indicates a port index outside {input, output}.
	ErrBadPortIndex = errors.New("bad port index")

	// ErrNoMoreFormats indicates an enumeration index past the end of the
	// supported list.
	ErrNoMoreFormats = errors.New("no more formats")

	// ErrUnknownExtension indicates an extension name with no known index.
	ErrUnknownExtension = errors.New("unknown extension name")

	// ErrSizeMismatch indicates an input buffer smaller than the frame
	// contract requires.
	ErrSizeMismatch = errors.New("input buffer size mismatch")
)

// Extraction errors. An extraction failure aborts the current frame only;
// the encoder's persistent state stays intact and later frames can succeed.
var (
	// ErrUnsupportedMetadataKind indicates a metadata descriptor whose
	// discriminator matches neither supported shape.
	ErrUnsupportedMetadataKind = metadata.ErrUnsupportedKind

	// ErrTruncatedDescriptor indicates a metadata buffer shorter than its
	// identified descriptor shape.
	ErrTruncatedDescriptor = metadata.ErrTruncated

	// ErrFenceTimeout indicates the buffer's fence did not signal within
	// the bounded wait.
	ErrFenceTimeout = nativebuf.ErrFenceTimeout

	// ErrDestinationTooSmall indicates the destination cannot hold the
	// planar frame; nothing is written to it.
	ErrDestinationTooSmall = errors.New("destination buffer is too small")

	// ErrUnsupportedPixelFormat indicates a native buffer in a pixel format
	// no conversion routine handles.
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")

	// ErrGPUPathUnavailable indicates the platform requires the GPU
	// readback path but it could not be initialized.
	ErrGPUPathUnavailable = glrender.ErrUnavailable
)

// ErrEncoderClosed indicates a call on an encoder after Close.
var ErrEncoderClosed = errors.New("encoder is closed")
