package glrender

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrUnavailable indicates the render path could not be initialized, or a
// render was attempted before initialization. Once initialization has
// failed the path stays unavailable; callers fail the frame instead of
// retrying setup per frame.
var ErrUnavailable = errors.New("GPU render path unavailable")

type pathState int

const (
	stateUninitialized pathState = iota
	stateReady
	stateUnavailable
	stateClosed
)

// Path is the render fallback as an owned resource: one per encoder
// instance, initialized on first need, never shared, torn down exactly once.
// The program, surface, context, and display persist across Render calls;
// each call creates and destroys its own image and texture binding.
type Path struct {
	drv Driver

	state    pathState
	display  Display
	config   SurfaceConfig
	context  Context
	surface  Surface
	program  uint32
	external bool
	width    int32
	height   int32
}

// NewPath creates an uninitialized render path over the given driver.
func NewPath(drv Driver) *Path {
	return &Path{drv: drv}
}

// Ready reports whether the path has been initialized and can render.
func (p *Path) Ready() bool {
	return p.state == stateReady
}

// Init runs the one-time setup sequence: display connection, surface
// configuration, context, offscreen surface sized to the frame, shader
// program, and quad geometry. external selects the external-image sampler
// shader variant used for opaque platform formats; the plain 2D variant is
// used otherwise.
//
// Any step's failure leaves the path permanently unavailable: later Init
// and Render calls return ErrUnavailable without touching the driver again.
func (p *Path) Init(width, height int32, external bool) error {
	switch p.state {
	case stateReady:
		return nil
	case stateUnavailable, stateClosed:
		return ErrUnavailable
	}

	logrus.WithFields(logrus.Fields{
		"function": "Path.Init",
		"width":    width,
		"height":   height,
		"external": external,
	}).Info("Initializing GPU render path")

	if err := p.initLocked(width, height, external); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Path.Init",
			"error":    err.Error(),
		}).Error("GPU render path initialization failed, path is now unavailable")
		p.teardown()
		p.state = stateUnavailable
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	p.state = stateReady
	return nil
}

func (p *Path) initLocked(width, height int32, external bool) error {
	display, err := p.drv.GetDisplay()
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	p.display = display

	if p.config, err = p.drv.ChooseConfig(p.display); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	context, err := p.drv.CreateContext(p.display, p.config)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	p.context = context

	surface, err := p.drv.CreatePbufferSurface(p.display, p.config, width, height)
	if err != nil {
		return fmt.Errorf("surface: %w", err)
	}
	p.surface = surface

	if err = p.drv.MakeCurrent(p.display, p.surface, p.context); err != nil {
		return fmt.Errorf("make current: %w", err)
	}
	vs, fs := vertexShader, fragmentShader
	if external {
		vs, fs = vertexShaderExternal, fragmentShaderExternal
	}
	program, err := p.drv.BuildProgram(vs, fs)
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}
	p.program = program
	if err = p.drv.SetupQuad(p.program, external, width, height); err != nil {
		return fmt.Errorf("quad setup: %w", err)
	}

	p.external = external
	p.width = width
	p.height = height
	return nil
}

// Render imports the native buffer behind clientBuffer as a GPU image,
// draws it across the offscreen surface, and reads the RGBA result into
// dst, which must hold at least width*height*4 bytes. The image and texture
// binding live only for this call.
func (p *Path) Render(clientBuffer uint64, width, height int32, dst []byte) error {
	if p.state != stateReady {
		return ErrUnavailable
	}

	// Preserve the import contents for plain 2D sources; external-image
	// sources are sampled live.
	img, err := p.drv.CreateImage(p.display, clientBuffer, !p.external)
	if err != nil {
		return fmt.Errorf("image import: %w", err)
	}
	defer func() {
		if derr := p.drv.DestroyImage(p.display, img); derr != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Path.Render",
				"error":    derr.Error(),
			}).Error("Failed to destroy imported image")
		}
	}()

	tex, err := p.drv.BindImageTexture(img, p.external)
	if err != nil {
		return fmt.Errorf("texture bind: %w", err)
	}
	defer p.drv.DeleteTexture(tex)

	p.drv.DrawQuad()

	if err := p.drv.ReadPixels(width, height, dst); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	return nil
}

// Close tears the path down exactly once. It is safe to call when the path
// was never initialized and on repeated calls.
func (p *Path) Close() {
	if p.state == stateClosed {
		return
	}
	wasReady := p.state == stateReady
	p.teardown()
	p.state = stateClosed

	if wasReady {
		logrus.WithFields(logrus.Fields{
			"function": "Path.Close",
		}).Info("GPU render path torn down")
	}
}

func (p *Path) teardown() {
	if p.display == 0 {
		return
	}
	if p.program != 0 {
		p.drv.DeleteProgram(p.program)
		p.program = 0
	}
	_ = p.drv.ReleaseCurrent(p.display)
	if p.surface != 0 {
		_ = p.drv.DestroySurface(p.display, p.surface)
		p.surface = 0
	}
	if p.context != 0 {
		_ = p.drv.DestroyContext(p.display, p.context)
		p.context = 0
	}
	_ = p.drv.Terminate(p.display)
	p.display = 0
}
