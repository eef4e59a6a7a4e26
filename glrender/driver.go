package glrender

// Opaque driver-side resource references.
type (
	// Display is an initialized connection to the windowing/GPU system.
	Display uintptr
	// SurfaceConfig is a chosen framebuffer configuration.
	SurfaceConfig uintptr
	// Context is a rendering context.
	Context uintptr
	// Surface is an offscreen pixel-buffer render target.
	Surface uintptr
	// Image is an imported external image bound to a native buffer.
	Image uintptr
)

// Driver is the slice of the EGL/GLES2 surface the render path needs. The
// production implementation binds the platform libraries at runtime; tests
// substitute a fake. Every method that can fail reports failure through its
// error return, carrying the underlying driver error string.
type Driver interface {
	// GetDisplay opens and initializes the default display connection.
	GetDisplay() (Display, error)

	// ChooseConfig picks an 8-bit RGBA, GLES2-capable, pbuffer-surface
	// configuration.
	ChooseConfig(d Display) (SurfaceConfig, error)

	// CreateContext creates a GLES2 rendering context.
	CreateContext(d Display, c SurfaceConfig) (Context, error)

	// CreatePbufferSurface creates an offscreen surface of the given size.
	CreatePbufferSurface(d Display, c SurfaceConfig, width, height int32) (Surface, error)

	// MakeCurrent binds the surface and context to the calling thread.
	MakeCurrent(d Display, s Surface, c Context) error

	// BuildProgram compiles and links a shader pair and returns the program
	// object.
	BuildProgram(vertexSrc, fragmentSrc string) (uint32, error)

	// SetupQuad binds the full-surface quad vertex attributes and sampler
	// uniform of the program and sets the viewport.
	SetupQuad(program uint32, external bool, width, height int32) error

	// CreateImage imports a native buffer as an external image. preserved
	// requests that the image contents survive the import.
	CreateImage(d Display, clientBuffer uint64, preserved bool) (Image, error)

	// BindImageTexture creates a texture, binds the image to it on the
	// external-OES or 2D target, and returns the texture object.
	BindImageTexture(img Image, external bool) (uint32, error)

	// DrawQuad draws the full-surface quad set up by SetupQuad.
	DrawQuad()

	// ReadPixels reads the rendered RGBA pixels back into dst.
	ReadPixels(width, height int32, dst []byte) error

	// DeleteTexture releases a texture created by BindImageTexture.
	DeleteTexture(tex uint32)

	// DestroyImage releases an imported image.
	DestroyImage(d Display, img Image) error

	// DeleteProgram releases a program built by BuildProgram.
	DeleteProgram(program uint32)

	// ReleaseCurrent unbinds any surface and context from the thread.
	ReleaseCurrent(d Display) error

	// DestroySurface releases an offscreen surface.
	DestroySurface(d Display, s Surface) error

	// DestroyContext releases a rendering context.
	DestroyContext(d Display, c Context) error

	// Terminate closes the display connection.
	Terminate(d Display) error
}
