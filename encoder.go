package softenc

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/softenc/glrender"
	"github.com/opd-ai/softenc/metadata"
	"github.com/opd-ai/softenc/nativebuf"
)

// Encoder is the adapter base shared by concrete video encoder components.
// It owns the negotiated geometry and format state, the platform capability
// set, and the buffer extraction pipeline.
//
// An Encoder is single-owner state: all calls execute on the thread that
// drives the host's buffer-delivery callback, and nothing is shared across
// instances.
type Encoder struct {
	id     string
	name   string
	role   string
	coding string

	width        int32
	height       int32
	bitrate      uint32
	framerateQ16 uint32

	colorFormat     ColorFormat
	prevRawFormat   ColorFormat
	inputDataIsMeta bool

	minOutputBufferSize uint32
	minCompressionRatio uint32
	profileLevels       []ProfileLevel

	platform Platform
	mapper   nativebuf.Mapper
	fences   *nativebuf.FenceTable

	renderDriver glrender.Driver
	render       *glrender.Path
	staging      []byte

	sizes  BufferSizes
	closed bool
}

// NewEncoder creates an encoder adapter base from the given configuration.
// The platform capability set is resolved here, once; the GPU render path,
// when the platform requires one, is created lazily on first need.
func NewEncoder(cfg Config) (*Encoder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrBadParameter, cfg.Width, cfg.Height)
	}
	if cfg.Mapper == nil {
		return nil, fmt.Errorf("%w: mapper is required", ErrBadParameter)
	}

	if cfg.MinOutputBufferSize == 0 {
		cfg.MinOutputBufferSize = defaultMinOutputBufferSize
	}
	if cfg.MinCompressionRatio == 0 {
		cfg.MinCompressionRatio = defaultMinCompressionRatio
	}

	e := &Encoder{
		id:                  uuid.NewString(),
		name:                cfg.Name,
		role:                cfg.Role,
		coding:              cfg.Coding,
		width:               cfg.Width,
		height:              cfg.Height,
		bitrate:             defaultBitrate,
		framerateQ16:        defaultFramerateQ16,
		colorFormat:         ColorFormatYUV420Planar,
		prevRawFormat:       ColorFormatYUV420Planar,
		minOutputBufferSize: cfg.MinOutputBufferSize,
		minCompressionRatio: cfg.MinCompressionRatio,
		profileLevels:       cfg.ProfileLevels,
		platform:            ResolvePlatform(cfg.PlatformName),
		mapper:              cfg.Mapper,
		fences:              cfg.Fences,
		renderDriver:        cfg.RenderDriver,
	}
	e.updateBufferSizes()
	e.growStaging()

	logrus.WithFields(logrus.Fields{
		"function": "NewEncoder",
		"instance": e.id,
		"name":     e.name,
		"role":     e.role,
		"width":    e.width,
		"height":   e.height,
		"platform": e.platform.Name,
		"gpu_path": e.platform.RequiresGPUFallback,
	}).Info("Created encoder adapter base")

	return e, nil
}

// growStaging sizes the GPU readback staging buffer to the current frame.
// Only platforms routed through the render path pay for it.
func (e *Encoder) growStaging() {
	if !e.platform.RequiresGPUFallback {
		return
	}
	need := int(e.width) * int(e.height) * 4
	if len(e.staging) < need {
		e.staging = make([]byte, need)
	}
}

// Geometry returns the current input-port frame geometry snapshot.
func (e *Encoder) Geometry() FrameGeometry {
	return FrameGeometry{
		Width:       e.width,
		Height:      e.height,
		Stride:      e.width,
		SliceHeight: e.height,
	}
}

// BufferSizes returns the buffer size contract derived from the current
// geometry and color format.
func (e *Encoder) BufferSizes() BufferSizes {
	return e.sizes
}

// ColorFormat returns the currently selected input color format.
func (e *Encoder) ColorFormat() ColorFormat {
	return e.colorFormat
}

// Bitrate returns the negotiated target bitrate in bits per second.
func (e *Encoder) Bitrate() uint32 {
	return e.bitrate
}

// FramerateQ16 returns the negotiated framerate in Q16 fixed point.
func (e *Encoder) FramerateQ16() uint32 {
	return e.framerateQ16
}

// UsesMetadataInput reports whether metadata mode is active.
func (e *Encoder) UsesMetadataInput() bool {
	return e.inputDataIsMeta
}

// SetPortGeometry applies a geometry negotiation call to one port.
//
// The input port accepts dimensions, framerate, and one of the supported
// input color formats. The output port accepts the bitrate; its color
// format must stay Unused because it carries compressed data. Errors leave
// the encoder state untouched.
func (e *Encoder) SetPortGeometry(port PortIndex, width, height int32, colorFormat ColorFormat, bitrate, framerateQ16 uint32) error {
	switch port {
	case InputPort:
		if width <= 0 || height <= 0 {
			return fmt.Errorf("%w: invalid dimensions %dx%d", ErrBadParameter, width, height)
		}
		if !isSupportedInputFormat(colorFormat) {
			logrus.WithFields(logrus.Fields{
				"function":     "Encoder.SetPortGeometry",
				"instance":     e.id,
				"color_format": colorFormat.String(),
			}).Error("Unsupported input color format")
			return fmt.Errorf("%w: input color format %s", ErrUnsupportedSetting, colorFormat)
		}

		e.width = width
		e.height = height
		e.framerateQ16 = framerateQ16
		e.setColorFormat(colorFormat)
		e.growStaging()

	case OutputPort:
		if colorFormat != ColorFormatUnused {
			return fmt.Errorf("%w: output port carries compressed data, not %s", ErrUnsupportedSetting, colorFormat)
		}
		e.bitrate = bitrate

	default:
		return fmt.Errorf("%w: %d", ErrBadPortIndex, port)
	}

	e.updateBufferSizes()
	return nil
}

// GetPortGeometry returns the geometry snapshot for one port. The output
// port reports the frame dimensions with no stride contract of its own.
func (e *Encoder) GetPortGeometry(port PortIndex) (FrameGeometry, error) {
	switch port {
	case InputPort:
		return e.Geometry(), nil
	case OutputPort:
		return FrameGeometry{Width: e.width, Height: e.height}, nil
	default:
		return FrameGeometry{}, fmt.Errorf("%w: %d", ErrBadPortIndex, port)
	}
}

// SetInputColorFormat selects the input color format without touching the
// rest of the geometry.
func (e *Encoder) SetInputColorFormat(colorFormat ColorFormat) error {
	if !isSupportedInputFormat(colorFormat) {
		return fmt.Errorf("%w: input color format %s", ErrUnsupportedSetting, colorFormat)
	}
	e.setColorFormat(colorFormat)
	e.updateBufferSizes()
	return nil
}

// setColorFormat records the selection, remembering the last raw format so
// the metadata-mode toggle can restore it.
func (e *Encoder) setColorFormat(colorFormat ColorFormat) {
	if e.colorFormat.IsRaw() && colorFormat != e.colorFormat {
		e.prevRawFormat = e.colorFormat
	}
	if colorFormat.IsRaw() {
		e.prevRawFormat = colorFormat
	}
	e.colorFormat = colorFormat
}

func isSupportedInputFormat(colorFormat ColorFormat) bool {
	for _, f := range supportedColorFormats {
		if f == colorFormat {
			return true
		}
	}
	return false
}

// SupportedColorFormat enumerates the input color formats in preference
// order. Indexes past the end return ErrNoMoreFormats.
func (e *Encoder) SupportedColorFormat(index int) (ColorFormat, error) {
	if index < 0 || index >= len(supportedColorFormats) {
		return ColorFormatUnused, ErrNoMoreFormats
	}
	return supportedColorFormats[index], nil
}

// ProfileLevel enumerates the profile/level pairs of the concrete encoder.
func (e *Encoder) ProfileLevel(index int) (ProfileLevel, error) {
	if index < 0 || index >= len(e.profileLevels) {
		return ProfileLevel{}, ErrNoMoreFormats
	}
	return e.profileLevels[index], nil
}

// CheckRole verifies a role string against the component's role.
func (e *Encoder) CheckRole(role string) error {
	if role != e.role {
		return fmt.Errorf("%w: role %q, component is %q", ErrUnsupportedSetting, role, e.role)
	}
	return nil
}

// SetUsesMetadataInput toggles metadata mode on the input port.
//
// Switching it on forces the color format to the opaque placeholder,
// remembering the raw format that was selected. Switching it off while the
// opaque placeholder is active restores that raw format; when no raw format
// was ever selected the fallback is planar YUV 4:2:0.
func (e *Encoder) SetUsesMetadataInput(enabled bool) {
	e.inputDataIsMeta = enabled
	if enabled {
		e.setColorFormat(ColorFormatOpaque)
	} else if e.colorFormat == ColorFormatOpaque {
		restored := e.prevRawFormat
		if !restored.IsRaw() {
			restored = ColorFormatYUV420Planar
		}
		e.setColorFormat(restored)
	}
	e.updateBufferSizes()

	logrus.WithFields(logrus.Fields{
		"function":     "Encoder.SetUsesMetadataInput",
		"instance":     e.id,
		"enabled":      enabled,
		"color_format": e.colorFormat.String(),
	}).Info("Metadata input mode changed")
}

// ExtensionIndex resolves a host extension name. The two metadata-mode
// names map to the same toggle index; anything else is rejected.
func (e *Encoder) ExtensionIndex(name string) (ExtensionIndex, error) {
	switch name {
	case extensionNameStoreMetadata, extensionNameStoreANWBuffer:
		return ExtensionStoreMetadataInBuffers, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownExtension, name)
	}
}

// ValidateInputBuffer checks a delivered buffer's declared size against the
// frame contract: the metadata descriptor size in metadata mode, the raw
// 4:2:0 frame size otherwise. Oversized buffers are accepted with a
// warning; producers may over-allocate.
func (e *Encoder) ValidateInputBuffer(declaredSize int) error {
	required := int(e.width) * int(e.height) * 3 / 2
	if e.inputDataIsMeta {
		required = metadata.MaxDescriptorSize
	}

	if declaredSize < required {
		return fmt.Errorf("%w: got %d, need %d", ErrSizeMismatch, declaredSize, required)
	}
	if declaredSize > required {
		logrus.WithFields(logrus.Fields{
			"function":      "Encoder.ValidateInputBuffer",
			"instance":      e.id,
			"declared_size": declaredSize,
			"required_size": required,
		}).Warn("Input buffer contains more data than expected")
	}
	return nil
}

// Close releases the encoder's owned resources. The GPU render path, when
// one was created, is torn down exactly once. Close is idempotent.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if e.render != nil {
		e.render.Close()
		e.render = nil
	}
	e.staging = nil

	logrus.WithFields(logrus.Fields{
		"function": "Encoder.Close",
		"instance": e.id,
		"name":     e.name,
	}).Info("Encoder adapter base closed")
	return nil
}
