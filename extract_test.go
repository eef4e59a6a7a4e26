package softenc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/softenc/glrender"
	"github.com/opd-ai/softenc/metadata"
	"github.com/opd-ai/softenc/nativebuf"
)

const (
	testWidth  = 16
	testHeight = 16
	// Planar 4:2:0 frame size for a 16x16 frame with tight strides.
	testFrameSize = 384
)

func metadataConfig(reg *nativebuf.Registry) Config {
	cfg := testConfig()
	cfg.Width = testWidth
	cfg.Height = testHeight
	cfg.Mapper = reg
	return cfg
}

// registerYV12 registers a YVU planar buffer: luma ramp, constant chroma.
func registerYV12(reg *nativebuf.Registry, cr, cb byte) nativebuf.Handle {
	data := make([]byte, testWidth*testHeight*3/2)
	for i := 0; i < testWidth*testHeight; i++ {
		data[i] = byte(i % 251)
	}
	crPlane := data[testWidth*testHeight:]
	cbPlane := data[testWidth*testHeight+64:]
	for i := 0; i < 64; i++ {
		crPlane[i] = cr
		cbPlane[i] = cb
	}
	return reg.Register(&nativebuf.Buffer{
		Format: nativebuf.FormatYV12,
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth,
		Data:   data,
	})
}

func assertPlanarFrame(t *testing.T, out []byte, wantU, wantV byte) {
	t.Helper()
	require.Len(t, out, testFrameSize)
	for i := 0; i < testWidth*testHeight; i++ {
		require.Equal(t, byte(i%251), out[i], "luma sample %d", i)
	}
	for i := 0; i < 64; i++ {
		require.Equal(t, wantU, out[256+i], "U sample %d", i)
		require.Equal(t, wantV, out[320+i], "V sample %d", i)
	}
}

func TestExtractRejectsTruncatedDescriptor(t *testing.T) {
	e := newTestEncoder(t, metadataConfig(nativebuf.NewRegistry()))
	dst := make([]byte, testFrameSize)

	src := metadata.EncodeNativeWindow(1, -1)
	_, err := e.ExtractGraphicBuffer(dst, src[:len(src)-1], testWidth, testHeight)
	assert.ErrorIs(t, err, ErrTruncatedDescriptor)
}

func TestExtractRejectsUnknownKind(t *testing.T) {
	e := newTestEncoder(t, metadataConfig(nativebuf.NewRegistry()))
	dst := make([]byte, testFrameSize)

	src := make([]byte, metadata.MaxDescriptorSize)
	src[0] = 9 // neither descriptor tag
	_, err := e.ExtractGraphicBuffer(dst, src, testWidth, testHeight)
	assert.ErrorIs(t, err, ErrUnsupportedMetadataKind)
}

func TestExtractRejectsSmallDestinationUntouched(t *testing.T) {
	reg := nativebuf.NewRegistry()
	h := reg.Register(&nativebuf.Buffer{
		Format: nativebuf.FormatRGBA8888,
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth,
		Data:   make([]byte, testWidth*testHeight*4),
	})
	e := newTestEncoder(t, metadataConfig(reg))

	dst := make([]byte, testFrameSize-1)
	for i := range dst {
		dst[i] = 0xAB
	}

	_, err := e.ExtractGraphicBuffer(dst, metadata.EncodeGralloc(uint64(h)), testWidth, testHeight)
	assert.ErrorIs(t, err, ErrDestinationTooSmall)
	for i, b := range dst {
		require.Equal(t, byte(0xAB), b, "dst byte %d modified", i)
	}
}

func TestExtractUnknownHandle(t *testing.T) {
	e := newTestEncoder(t, metadataConfig(nativebuf.NewRegistry()))
	dst := make([]byte, testFrameSize)

	_, err := e.ExtractGraphicBuffer(dst, metadata.EncodeNativeWindow(99, -1), testWidth, testHeight)
	assert.ErrorIs(t, err, nativebuf.ErrUnknownHandle)
}

func TestExtractYV12(t *testing.T) {
	reg := nativebuf.NewRegistry()
	h := registerYV12(reg, 0x11, 0x22)
	e := newTestEncoder(t, metadataConfig(reg))

	dst := make([]byte, testFrameSize)
	out, err := e.ExtractGraphicBuffer(dst, metadata.EncodeNativeWindow(uint64(h), -1), testWidth, testHeight)
	require.NoError(t, err)

	// YVU source: the V plane comes first in storage but lands second in
	// the planar output.
	assertPlanarFrame(t, out, 0x22, 0x11)

	// The lock bracket was closed on the way out.
	m, err := reg.Lock(h)
	require.NoError(t, err)
	assert.NotNil(t, m.Bytes)
	require.NoError(t, reg.Unlock(h))
}

func TestExtractNV21(t *testing.T) {
	reg := nativebuf.NewRegistry()
	data := make([]byte, testWidth*testHeight*3/2)
	for i := 0; i < testWidth*testHeight; i++ {
		data[i] = byte(i % 251)
	}
	// Interleaved V/U pairs after the luma plane.
	chroma := data[testWidth*testHeight:]
	for i := 0; i < len(chroma); i += 2 {
		chroma[i] = 0x33   // V
		chroma[i+1] = 0x44 // U
	}
	h := reg.Register(&nativebuf.Buffer{
		Format: nativebuf.FormatNV21,
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth,
		Data:   data,
	})
	e := newTestEncoder(t, metadataConfig(reg))

	dst := make([]byte, testFrameSize)
	out, err := e.ExtractGraphicBuffer(dst, metadata.EncodeNativeWindow(uint64(h), -1), testWidth, testHeight)
	require.NoError(t, err)
	assertPlanarFrame(t, out, 0x44, 0x33)
}

func TestExtractFlexYUV(t *testing.T) {
	reg := nativebuf.NewRegistry()
	data := make([]byte, testWidth*testHeight*3/2)
	for i := 0; i < testWidth*testHeight; i++ {
		data[i] = byte(i % 251)
	}
	cbPlane := data[testWidth*testHeight:]
	crPlane := data[testWidth*testHeight+64:]
	for i := 0; i < 64; i++ {
		cbPlane[i] = 0x55
		crPlane[i] = 0x66
	}
	h := reg.Register(&nativebuf.Buffer{
		Format: nativebuf.FormatYCbCr420Flex,
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth,
		Data:   data,
	})
	e := newTestEncoder(t, metadataConfig(reg))

	dst := make([]byte, testFrameSize)
	out, err := e.ExtractGraphicBuffer(dst, metadata.EncodeNativeWindow(uint64(h), -1), testWidth, testHeight)
	require.NoError(t, err)
	assertPlanarFrame(t, out, 0x55, 0x66)
}

// registerRGB32 registers a packed 32-bit buffer filled with one color in
// the byte order the format declares.
func registerRGB32(reg *nativebuf.Registry, format nativebuf.PixelFormat, r, g, b byte) nativebuf.Handle {
	data := make([]byte, testWidth*testHeight*4)
	for i := 0; i < len(data); i += 4 {
		if format.IsBGR() {
			data[i], data[i+1], data[i+2] = b, g, r
		} else {
			data[i], data[i+1], data[i+2] = r, g, b
		}
		data[i+3] = 0xFF
	}
	return reg.Register(&nativebuf.Buffer{
		Format: format,
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth,
		Data:   data,
	})
}

func assertSolidYUV(t *testing.T, out []byte, wantY, wantU, wantV int) {
	t.Helper()
	require.Len(t, out, testFrameSize)
	assert.InDelta(t, wantY, int(out[0]), 1, "Y")
	assert.InDelta(t, wantU, int(out[256]), 1, "U")
	assert.InDelta(t, wantV, int(out[320]), 1, "V")
}

func TestExtractRGB32(t *testing.T) {
	tests := []struct {
		name    string
		format  nativebuf.PixelFormat
		r, g, b byte
		wantY   int
		wantU   int
		wantV   int
	}{
		{name: "rgba_red", format: nativebuf.FormatRGBA8888, r: 255, wantY: 81, wantU: 90, wantV: 240},
		{name: "rgbx_red", format: nativebuf.FormatRGBX8888, r: 255, wantY: 81, wantU: 90, wantV: 240},
		{name: "bgra_red", format: nativebuf.FormatBGRA8888, r: 255, wantY: 81, wantU: 90, wantV: 240},
		{name: "rgba_white", format: nativebuf.FormatRGBA8888, r: 255, g: 255, b: 255, wantY: 235, wantU: 128, wantV: 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := nativebuf.NewRegistry()
			h := registerRGB32(reg, tt.format, tt.r, tt.g, tt.b)
			e := newTestEncoder(t, metadataConfig(reg))

			dst := make([]byte, testFrameSize)
			out, err := e.ExtractGraphicBuffer(dst, metadata.EncodeNativeWindow(uint64(h), -1), testWidth, testHeight)
			require.NoError(t, err)
			assertSolidYUV(t, out, tt.wantY, tt.wantU, tt.wantV)
		})
	}
}

func TestExtractGrallocAssumesRGBA(t *testing.T) {
	// The legacy shape carries no format; the handle resolves straight to
	// storage interpreted as packed RGBA.
	reg := nativebuf.NewRegistry()
	h := registerRGB32(reg, nativebuf.FormatRGBA8888, 255, 0, 0)
	e := newTestEncoder(t, metadataConfig(reg))

	dst := make([]byte, testFrameSize)
	out, err := e.ExtractGraphicBuffer(dst, metadata.EncodeGralloc(uint64(h)), testWidth, testHeight)
	require.NoError(t, err)
	assertSolidYUV(t, out, 81, 90, 240)
}

func TestExtractUnsupportedPixelFormat(t *testing.T) {
	reg := nativebuf.NewRegistry()
	h := reg.Register(&nativebuf.Buffer{
		Format: nativebuf.PixelFormat(0x99),
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth,
		Data:   make([]byte, testWidth*testHeight*4),
	})
	e := newTestEncoder(t, metadataConfig(reg))

	dst := make([]byte, testFrameSize)
	_, err := e.ExtractGraphicBuffer(dst, metadata.EncodeNativeWindow(uint64(h), -1), testWidth, testHeight)
	assert.ErrorIs(t, err, ErrUnsupportedPixelFormat)
}

func TestExtractWaitsOnFence(t *testing.T) {
	reg := nativebuf.NewRegistry()
	h := registerYV12(reg, 0x11, 0x22)

	cfg := metadataConfig(reg)
	cfg.Fences = nativebuf.NewFenceTable()
	e := newTestEncoder(t, cfg)

	fd := cfg.Fences.Install(nativebuf.NewSignalledFence())
	src := metadata.EncodeNativeWindow(uint64(h), fd)

	dst := make([]byte, testFrameSize)
	out, err := e.ExtractGraphicBuffer(dst, src, testWidth, testHeight)
	require.NoError(t, err)
	assertPlanarFrame(t, out, 0x22, 0x11)

	// The fence was consumed: the descriptor now says -1 and the table
	// entry is gone.
	desc, err := metadata.Decode(src)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), desc.FenceFD)
	assert.Nil(t, cfg.Fences.Take(fd))
}

func TestExtractFenceTimeout(t *testing.T) {
	reg := nativebuf.NewRegistry()
	h := registerYV12(reg, 0x11, 0x22)

	cfg := metadataConfig(reg)
	cfg.Fences = nativebuf.NewFenceTable()
	e := newTestEncoder(t, cfg)

	fd := cfg.Fences.Install(nativebuf.NewFence())
	src := metadata.EncodeNativeWindow(uint64(h), fd)

	dst := make([]byte, testFrameSize)
	_, err := e.ExtractGraphicBuffer(dst, src, testWidth, testHeight)
	assert.ErrorIs(t, err, ErrFenceTimeout)

	// Even the abandoned frame invalidates the fence field.
	desc, decodeErr := metadata.Decode(src)
	require.NoError(t, decodeErr)
	assert.Equal(t, int32(-1), desc.FenceFD)
}

func TestExtractFenceWithoutTable(t *testing.T) {
	// No fence table configured: a non-negative descriptor is treated as
	// already signalled.
	reg := nativebuf.NewRegistry()
	h := registerYV12(reg, 0x11, 0x22)
	e := newTestEncoder(t, metadataConfig(reg))

	dst := make([]byte, testFrameSize)
	out, err := e.ExtractGraphicBuffer(dst, metadata.EncodeNativeWindow(uint64(h), 5), testWidth, testHeight)
	require.NoError(t, err)
	assertPlanarFrame(t, out, 0x22, 0x11)
}

// stubDriver satisfies glrender.Driver for routing tests. ReadPixels fills
// the destination with one RGBA color.
type stubDriver struct {
	calls       int
	failDisplay bool
	external    *bool
	fill        [4]byte
}

func (d *stubDriver) GetDisplay() (glrender.Display, error) {
	d.calls++
	if d.failDisplay {
		return 0, errors.New("no display")
	}
	return 1, nil
}

func (d *stubDriver) ChooseConfig(glrender.Display) (glrender.SurfaceConfig, error) {
	d.calls++
	return 1, nil
}

func (d *stubDriver) CreateContext(glrender.Display, glrender.SurfaceConfig) (glrender.Context, error) {
	d.calls++
	return 1, nil
}

func (d *stubDriver) CreatePbufferSurface(_ glrender.Display, _ glrender.SurfaceConfig, _, _ int32) (glrender.Surface, error) {
	d.calls++
	return 1, nil
}

func (d *stubDriver) MakeCurrent(glrender.Display, glrender.Surface, glrender.Context) error {
	d.calls++
	return nil
}

func (d *stubDriver) BuildProgram(_, fragmentSrc string) (uint32, error) {
	d.calls++
	return 1, nil
}

func (d *stubDriver) SetupQuad(_ uint32, external bool, _, _ int32) error {
	d.calls++
	if d.external != nil {
		*d.external = external
	}
	return nil
}

func (d *stubDriver) CreateImage(_ glrender.Display, clientBuffer uint64, _ bool) (glrender.Image, error) {
	d.calls++
	return glrender.Image(clientBuffer), nil
}

func (d *stubDriver) BindImageTexture(_ glrender.Image, _ bool) (uint32, error) {
	d.calls++
	return 1, nil
}

func (d *stubDriver) DrawQuad() { d.calls++ }

func (d *stubDriver) ReadPixels(_, _ int32, dst []byte) error {
	d.calls++
	for i := 0; i+3 < len(dst); i += 4 {
		copy(dst[i:], d.fill[:])
	}
	return nil
}

func (d *stubDriver) DeleteTexture(uint32) { d.calls++ }

func (d *stubDriver) DestroyImage(glrender.Display, glrender.Image) error {
	d.calls++
	return nil
}

func (d *stubDriver) DeleteProgram(uint32) { d.calls++ }

func (d *stubDriver) ReleaseCurrent(glrender.Display) error { d.calls++; return nil }
func (d *stubDriver) DestroySurface(glrender.Display, glrender.Surface) error {
	d.calls++
	return nil
}
func (d *stubDriver) DestroyContext(glrender.Display, glrender.Context) error {
	d.calls++
	return nil
}
func (d *stubDriver) Terminate(glrender.Display) error { d.calls++; return nil }

func TestExtractRGBRoutesThroughGPU(t *testing.T) {
	reg := nativebuf.NewRegistry()
	// Storage stays empty: the GPU route must never CPU-map it.
	h := reg.Register(&nativebuf.Buffer{
		Format: nativebuf.FormatRGBA8888,
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth,
		Data:   nil,
	})

	var external bool
	drv := &stubDriver{fill: [4]byte{255, 0, 0, 255}, external: &external}
	cfg := metadataConfig(reg)
	cfg.PlatformName = "powervr"
	cfg.RenderDriver = drv
	e := newTestEncoder(t, cfg)

	dst := make([]byte, testFrameSize)
	out, err := e.ExtractGraphicBuffer(dst, metadata.EncodeNativeWindow(uint64(h), -1), testWidth, testHeight)
	require.NoError(t, err)
	assertSolidYUV(t, out, 81, 90, 240)

	assert.False(t, external, "packed RGB uses the 2D sampler variant")
	assert.Greater(t, drv.calls, 0)
}

func TestExtractFlexRoutesThroughGPUExternal(t *testing.T) {
	reg := nativebuf.NewRegistry()
	h := reg.Register(&nativebuf.Buffer{
		Format: nativebuf.FormatYCbCr420Flex,
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth,
		Data:   nil,
	})

	var external bool
	drv := &stubDriver{fill: [4]byte{0, 0, 0, 255}, external: &external}
	cfg := metadataConfig(reg)
	cfg.PlatformName = "powervr"
	cfg.RenderDriver = drv
	e := newTestEncoder(t, cfg)

	dst := make([]byte, testFrameSize)
	out, err := e.ExtractGraphicBuffer(dst, metadata.EncodeNativeWindow(uint64(h), -1), testWidth, testHeight)
	require.NoError(t, err)
	assertSolidYUV(t, out, 16, 128, 128)
	assert.True(t, external, "flexible YUV uses the external sampler variant")
}

func TestExtractGPUInitFailureIsPermanent(t *testing.T) {
	reg := nativebuf.NewRegistry()
	h := reg.Register(&nativebuf.Buffer{
		Format: nativebuf.FormatRGBA8888,
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth,
	})

	drv := &stubDriver{failDisplay: true}
	cfg := metadataConfig(reg)
	cfg.PlatformName = "powervr"
	cfg.RenderDriver = drv
	e := newTestEncoder(t, cfg)

	dst := make([]byte, testFrameSize)
	src := metadata.EncodeNativeWindow(uint64(h), -1)

	_, err := e.ExtractGraphicBuffer(dst, src, testWidth, testHeight)
	assert.ErrorIs(t, err, ErrGPUPathUnavailable)
	callsAfterFirst := drv.calls

	// Later frames fail fast without touching the driver again.
	_, err = e.ExtractGraphicBuffer(dst, src, testWidth, testHeight)
	assert.ErrorIs(t, err, ErrGPUPathUnavailable)
	assert.Equal(t, callsAfterFirst, drv.calls)
}

func TestExtractYUVStaysOnCPUEvenWithGPUPlatform(t *testing.T) {
	// Planar and semiplanar YUV sources never take the GPU route; only
	// flexible YUV and packed RGB do.
	reg := nativebuf.NewRegistry()
	data := make([]byte, testWidth*testHeight*4*3/2)
	h := reg.Register(&nativebuf.Buffer{
		Format: nativebuf.FormatYV12,
		Width:  testWidth,
		Height: testHeight,
		Stride: testWidth >> 2, // byte stride times four matches the data
		Data:   data,
	})

	drv := &stubDriver{}
	cfg := metadataConfig(reg)
	cfg.PlatformName = "powervr"
	cfg.RenderDriver = drv
	e := newTestEncoder(t, cfg)

	dst := make([]byte, testFrameSize)
	_, err := e.ExtractGraphicBuffer(dst, metadata.EncodeNativeWindow(uint64(h), -1), testWidth, testHeight)
	require.NoError(t, err)
	assert.Zero(t, drv.calls)
}
