package glrender

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver records the call sequence and can be told to fail at a given
// step.
type fakeDriver struct {
	calls    []string
	failStep string

	vertexSrc   string
	fragmentSrc string
	external    bool
	pixel       byte

	liveImages   int
	liveTextures int
}

var errFakeStep = errors.New("injected driver failure")

func (f *fakeDriver) step(name string) error {
	f.calls = append(f.calls, name)
	if f.failStep == name {
		return errFakeStep
	}
	return nil
}

func (f *fakeDriver) GetDisplay() (Display, error) {
	return Display(0x10), f.step("GetDisplay")
}

func (f *fakeDriver) ChooseConfig(Display) (SurfaceConfig, error) {
	return SurfaceConfig(0x20), f.step("ChooseConfig")
}

func (f *fakeDriver) CreateContext(Display, SurfaceConfig) (Context, error) {
	return Context(0x30), f.step("CreateContext")
}

func (f *fakeDriver) CreatePbufferSurface(d Display, c SurfaceConfig, w, h int32) (Surface, error) {
	return Surface(0x40), f.step("CreatePbufferSurface")
}

func (f *fakeDriver) MakeCurrent(Display, Surface, Context) error {
	return f.step("MakeCurrent")
}

func (f *fakeDriver) BuildProgram(vs, fs string) (uint32, error) {
	f.vertexSrc, f.fragmentSrc = vs, fs
	return 7, f.step("BuildProgram")
}

func (f *fakeDriver) SetupQuad(program uint32, external bool, w, h int32) error {
	f.external = external
	return f.step("SetupQuad")
}

func (f *fakeDriver) CreateImage(d Display, clientBuffer uint64, preserved bool) (Image, error) {
	if err := f.step("CreateImage"); err != nil {
		return 0, err
	}
	f.liveImages++
	return Image(0x50), nil
}

func (f *fakeDriver) BindImageTexture(img Image, external bool) (uint32, error) {
	if err := f.step("BindImageTexture"); err != nil {
		return 0, err
	}
	f.liveTextures++
	return 3, nil
}

func (f *fakeDriver) DrawQuad() {
	f.calls = append(f.calls, "DrawQuad")
}

func (f *fakeDriver) ReadPixels(w, h int32, dst []byte) error {
	if err := f.step("ReadPixels"); err != nil {
		return err
	}
	for i := 0; i < int(w)*int(h)*4; i++ {
		dst[i] = f.pixel
	}
	return nil
}

func (f *fakeDriver) DeleteTexture(uint32) {
	f.calls = append(f.calls, "DeleteTexture")
	f.liveTextures--
}

func (f *fakeDriver) DestroyImage(Display, Image) error {
	f.calls = append(f.calls, "DestroyImage")
	f.liveImages--
	return nil
}

func (f *fakeDriver) DeleteProgram(uint32) {
	f.calls = append(f.calls, "DeleteProgram")
}

func (f *fakeDriver) ReleaseCurrent(Display) error {
	return f.step("ReleaseCurrent")
}

func (f *fakeDriver) DestroySurface(Display, Surface) error {
	return f.step("DestroySurface")
}

func (f *fakeDriver) DestroyContext(Display, Context) error {
	return f.step("DestroyContext")
}

func (f *fakeDriver) Terminate(Display) error {
	return f.step("Terminate")
}

func TestPathInitSequence(t *testing.T) {
	drv := &fakeDriver{}
	p := NewPath(drv)

	require.NoError(t, p.Init(64, 32, false))
	assert.True(t, p.Ready())

	assert.Equal(t, []string{
		"GetDisplay", "ChooseConfig", "CreateContext",
		"CreatePbufferSurface", "MakeCurrent", "BuildProgram", "SetupQuad",
	}, drv.calls)
	assert.Equal(t, vertexShader, drv.vertexSrc)
	assert.False(t, drv.external)
}

func TestPathInitExternalVariant(t *testing.T) {
	drv := &fakeDriver{}
	p := NewPath(drv)

	require.NoError(t, p.Init(64, 32, true))

	assert.Equal(t, vertexShaderExternal, drv.vertexSrc)
	assert.Equal(t, fragmentShaderExternal, drv.fragmentSrc)
	assert.True(t, drv.external)
}

func TestPathInitFailureIsPermanent(t *testing.T) {
	tests := []string{
		"GetDisplay", "ChooseConfig", "CreateContext",
		"CreatePbufferSurface", "MakeCurrent", "BuildProgram", "SetupQuad",
	}

	for _, step := range tests {
		t.Run(step, func(t *testing.T) {
			drv := &fakeDriver{failStep: step}
			p := NewPath(drv)

			err := p.Init(64, 32, false)
			assert.ErrorIs(t, err, ErrUnavailable)
			assert.False(t, p.Ready())

			// No per-frame retry: the driver is never touched again.
			callsAfterInit := len(drv.calls)
			assert.ErrorIs(t, p.Init(64, 32, false), ErrUnavailable)
			assert.ErrorIs(t, p.Render(1, 64, 32, make([]byte, 64*32*4)), ErrUnavailable)
			assert.Equal(t, callsAfterInit, len(drv.calls))
		})
	}
}

func TestPathRender(t *testing.T) {
	drv := &fakeDriver{pixel: 0xAB}
	p := NewPath(drv)
	require.NoError(t, p.Init(8, 4, false))

	dst := make([]byte, 8*4*4)
	require.NoError(t, p.Render(42, 8, 4, dst))

	for i, b := range dst {
		require.Equal(t, byte(0xAB), b, "staging byte %d", i)
	}

	// Texture and image are per-call resources.
	assert.Zero(t, drv.liveImages)
	assert.Zero(t, drv.liveTextures)
}

func TestPathRenderReleasesResourcesOnFailure(t *testing.T) {
	drv := &fakeDriver{failStep: "ReadPixels"}
	p := NewPath(drv)
	require.NoError(t, p.Init(8, 4, false))

	err := p.Render(42, 8, 4, make([]byte, 8*4*4))
	require.Error(t, err)

	assert.Zero(t, drv.liveImages)
	assert.Zero(t, drv.liveTextures)
}

func TestPathRenderBeforeInit(t *testing.T) {
	p := NewPath(&fakeDriver{})
	err := p.Render(1, 8, 4, make([]byte, 8*4*4))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPathClose(t *testing.T) {
	drv := &fakeDriver{}
	p := NewPath(drv)
	require.NoError(t, p.Init(8, 4, false))

	p.Close()
	assert.Contains(t, drv.calls, "DeleteProgram")
	assert.Contains(t, drv.calls, "DestroySurface")
	assert.Contains(t, drv.calls, "DestroyContext")
	assert.Contains(t, drv.calls, "Terminate")

	calls := len(drv.calls)
	p.Close() // second close is a no-op
	assert.Equal(t, calls, len(drv.calls))

	assert.ErrorIs(t, p.Init(8, 4, false), ErrUnavailable)
}

func TestPathCloseNeverInitialized(t *testing.T) {
	drv := &fakeDriver{}
	p := NewPath(drv)

	p.Close()
	assert.Empty(t, drv.calls)
}
