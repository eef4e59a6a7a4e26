//go:build linux && (amd64 || arm64)

package glrender

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/sirupsen/logrus"
)

// EGL constants, from EGL/egl.h and EGL/eglext.h.
const (
	eglDefaultDisplay    = 0
	eglNoDisplay         = 0
	eglNoContext         = 0
	eglNoSurface         = 0
	eglFalse             = 0
	eglSuccess           = 0x3000
	eglAlphaSize         = 0x3021
	eglBlueSize          = 0x3022
	eglGreenSize         = 0x3023
	eglRedSize           = 0x3024
	eglSurfaceType       = 0x3033
	eglNone              = 0x3038
	eglRenderableType    = 0x3040
	eglOpenGLES2Bit      = 0x0004
	eglPbufferBit        = 0x0001
	eglWidth             = 0x3057
	eglHeight            = 0x3056
	eglContextClientVer  = 0x3098
	eglNativeBufferKHR   = 0x3140
	eglImagePreservedKHR = 0x30D2
	eglTrue              = 1
)

// GLES2 constants, from GLES2/gl2.h and GLES2/gl2ext.h.
const (
	glFragmentShader     = 0x8B30
	glVertexShader       = 0x8B31
	glCompileStatus      = 0x8B81
	glLinkStatus         = 0x8B82
	glFloat              = 0x1406
	glTriangleFan        = 0x0006
	glTexture2D          = 0x0DE1
	glTextureExternalOES = 0x8D65
	glTextureMinFilter   = 0x2801
	glTextureMagFilter   = 0x2800
	glNearest            = 0x2600
	glRGBA               = 0x1908
	glUnsignedByte       = 0x1401
	glNoError            = 0
)

// EGL entry points.
var (
	eglGetDisplay           func(display uintptr) uintptr
	eglInitialize           func(display uintptr, major, minor *int32) uint32
	eglChooseConfig         func(display uintptr, attribs *int32, configs *uintptr, configSize int32, numConfig *int32) uint32
	eglCreateContext        func(display, config, shareContext uintptr, attribs *int32) uintptr
	eglCreatePbufferSurface func(display, config uintptr, attribs *int32) uintptr
	eglMakeCurrent          func(display, draw, read, context uintptr) uint32
	eglDestroySurface       func(display, surface uintptr) uint32
	eglDestroyContext       func(display, context uintptr) uint32
	eglTerminate            func(display uintptr) uint32
	eglGetError             func() int32
	eglGetProcAddress       func(name string) uintptr

	eglCreateImageKHR  func(display, context uintptr, target uint32, clientBuffer uintptr, attribs *int32) uintptr
	eglDestroyImageKHR func(display, image uintptr) uint32
)

// GLES2 entry points.
var (
	glCreateShader            func(shaderType uint32) uint32
	glShaderSource            func(shader uint32, count int32, sources *uintptr, lengths *int32)
	glCompileShader           func(shader uint32)
	glGetShaderiv             func(shader, pname uint32, params *int32)
	glGetShaderInfoLog        func(shader uint32, maxLength int32, length *int32, infoLog *byte)
	glDeleteShader            func(shader uint32)
	glCreateProgram           func() uint32
	glAttachShader            func(program, shader uint32)
	glLinkProgram             func(program uint32)
	glGetProgramiv            func(program, pname uint32, params *int32)
	glGetProgramInfoLog       func(program uint32, maxLength int32, length *int32, infoLog *byte)
	glDeleteProgram           func(program uint32)
	glUseProgram              func(program uint32)
	glGetAttribLocation       func(program uint32, name string) int32
	glGetUniformLocation      func(program uint32, name string) int32
	glVertexAttribPointer     func(index uint32, size int32, typ uint32, normalized uint32, stride int32, pointer *float32)
	glEnableVertexAttribArray func(index uint32)
	glUniform1i               func(location, v0 int32)
	glViewport                func(x, y, width, height int32)
	glGenTextures             func(n int32, textures *uint32)
	glBindTexture             func(target, texture uint32)
	glTexParameteri           func(target, pname uint32, param int32)
	glDrawArrays              func(mode uint32, first, count int32)
	glReadPixels              func(x, y, width, height int32, format, typ uint32, pixels *byte)
	glDeleteTextures          func(n int32, textures *uint32)
	glGetError                func() uint32

	glEGLImageTargetTexture2DOES func(target uint32, image uintptr)
)

var (
	loadOnce sync.Once
	loadErr  error
)

func load() error {
	loadOnce.Do(func() {
		loadErr = doLoad()
		if loadErr == nil {
			logrus.WithFields(logrus.Fields{
				"function": "glrender.load",
			}).Info("EGL/GLES2 libraries loaded")
		}
	})
	return loadErr
}

func doLoad() error {
	libEGL, err := purego.Dlopen("libEGL.so.1", purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return fmt.Errorf("loading libEGL: %w", err)
	}
	libGLES, err := purego.Dlopen("libGLESv2.so.2", purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return fmt.Errorf("loading libGLESv2: %w", err)
	}

	purego.RegisterLibFunc(&eglGetDisplay, libEGL, "eglGetDisplay")
	purego.RegisterLibFunc(&eglInitialize, libEGL, "eglInitialize")
	purego.RegisterLibFunc(&eglChooseConfig, libEGL, "eglChooseConfig")
	purego.RegisterLibFunc(&eglCreateContext, libEGL, "eglCreateContext")
	purego.RegisterLibFunc(&eglCreatePbufferSurface, libEGL, "eglCreatePbufferSurface")
	purego.RegisterLibFunc(&eglMakeCurrent, libEGL, "eglMakeCurrent")
	purego.RegisterLibFunc(&eglDestroySurface, libEGL, "eglDestroySurface")
	purego.RegisterLibFunc(&eglDestroyContext, libEGL, "eglDestroyContext")
	purego.RegisterLibFunc(&eglTerminate, libEGL, "eglTerminate")
	purego.RegisterLibFunc(&eglGetError, libEGL, "eglGetError")
	purego.RegisterLibFunc(&eglGetProcAddress, libEGL, "eglGetProcAddress")

	purego.RegisterLibFunc(&glCreateShader, libGLES, "glCreateShader")
	purego.RegisterLibFunc(&glShaderSource, libGLES, "glShaderSource")
	purego.RegisterLibFunc(&glCompileShader, libGLES, "glCompileShader")
	purego.RegisterLibFunc(&glGetShaderiv, libGLES, "glGetShaderiv")
	purego.RegisterLibFunc(&glGetShaderInfoLog, libGLES, "glGetShaderInfoLog")
	purego.RegisterLibFunc(&glDeleteShader, libGLES, "glDeleteShader")
	purego.RegisterLibFunc(&glCreateProgram, libGLES, "glCreateProgram")
	purego.RegisterLibFunc(&glAttachShader, libGLES, "glAttachShader")
	purego.RegisterLibFunc(&glLinkProgram, libGLES, "glLinkProgram")
	purego.RegisterLibFunc(&glGetProgramiv, libGLES, "glGetProgramiv")
	purego.RegisterLibFunc(&glGetProgramInfoLog, libGLES, "glGetProgramInfoLog")
	purego.RegisterLibFunc(&glDeleteProgram, libGLES, "glDeleteProgram")
	purego.RegisterLibFunc(&glUseProgram, libGLES, "glUseProgram")
	purego.RegisterLibFunc(&glGetAttribLocation, libGLES, "glGetAttribLocation")
	purego.RegisterLibFunc(&glGetUniformLocation, libGLES, "glGetUniformLocation")
	purego.RegisterLibFunc(&glVertexAttribPointer, libGLES, "glVertexAttribPointer")
	purego.RegisterLibFunc(&glEnableVertexAttribArray, libGLES, "glEnableVertexAttribArray")
	purego.RegisterLibFunc(&glUniform1i, libGLES, "glUniform1i")
	purego.RegisterLibFunc(&glViewport, libGLES, "glViewport")
	purego.RegisterLibFunc(&glGenTextures, libGLES, "glGenTextures")
	purego.RegisterLibFunc(&glBindTexture, libGLES, "glBindTexture")
	purego.RegisterLibFunc(&glTexParameteri, libGLES, "glTexParameteri")
	purego.RegisterLibFunc(&glDrawArrays, libGLES, "glDrawArrays")
	purego.RegisterLibFunc(&glReadPixels, libGLES, "glReadPixels")
	purego.RegisterLibFunc(&glDeleteTextures, libGLES, "glDeleteTextures")
	purego.RegisterLibFunc(&glGetError, libGLES, "glGetError")

	// Extension entry points are only reachable through eglGetProcAddress.
	for _, ext := range []struct {
		fn   interface{}
		name string
	}{
		{&eglCreateImageKHR, "eglCreateImageKHR"},
		{&eglDestroyImageKHR, "eglDestroyImageKHR"},
		{&glEGLImageTargetTexture2DOES, "glEGLImageTargetTexture2DOES"},
	} {
		addr := eglGetProcAddress(ext.name)
		if addr == 0 {
			return fmt.Errorf("%s not exposed by the EGL implementation", ext.name)
		}
		purego.RegisterFunc(ext.fn, addr)
	}

	return nil
}

// eglErrorString names the most recent EGL error for log output.
func eglErrorString(err int32) string {
	switch err {
	case eglSuccess:
		return "EGL_SUCCESS"
	case 0x3001:
		return "EGL_NOT_INITIALIZED"
	case 0x3002:
		return "EGL_BAD_ACCESS"
	case 0x3003:
		return "EGL_BAD_ALLOC"
	case 0x3004:
		return "EGL_BAD_ATTRIBUTE"
	case 0x3005:
		return "EGL_BAD_CONFIG"
	case 0x3006:
		return "EGL_BAD_CONTEXT"
	case 0x3007:
		return "EGL_BAD_CURRENT_SURFACE"
	case 0x3008:
		return "EGL_BAD_DISPLAY"
	case 0x3009:
		return "EGL_BAD_MATCH"
	case 0x300A:
		return "EGL_BAD_NATIVE_PIXMAP"
	case 0x300B:
		return "EGL_BAD_NATIVE_WINDOW"
	case 0x300C:
		return "EGL_BAD_PARAMETER"
	case 0x300D:
		return "EGL_BAD_SURFACE"
	case 0x300E:
		return "EGL_CONTEXT_LOST"
	default:
		return "UNKNOWN"
	}
}

func eglErr(op string) error {
	return fmt.Errorf("%s: %s", op, eglErrorString(eglGetError()))
}

// nativeDriver reaches the platform EGL and GLES2 libraries through
// runtime-loaded entry points.
type nativeDriver struct{}

// LoadDriver binds the platform EGL/GLES2 libraries and returns the native
// driver. Loading happens once per process; repeated calls return the same
// result.
func LoadDriver() (Driver, error) {
	if err := load(); err != nil {
		return nil, err
	}
	return nativeDriver{}, nil
}

func (nativeDriver) GetDisplay() (Display, error) {
	d := eglGetDisplay(eglDefaultDisplay)
	if d == eglNoDisplay {
		return 0, eglErr("eglGetDisplay")
	}
	if eglInitialize(d, nil, nil) == eglFalse {
		return 0, eglErr("eglInitialize")
	}
	return Display(d), nil
}

func (nativeDriver) ChooseConfig(d Display) (SurfaceConfig, error) {
	attrs := []int32{
		eglSurfaceType, eglPbufferBit,
		eglRenderableType, eglOpenGLES2Bit,
		eglRedSize, 8,
		eglGreenSize, 8,
		eglBlueSize, 8,
		eglAlphaSize, 8,
		eglNone,
	}
	var config uintptr
	var num int32
	if eglChooseConfig(uintptr(d), &attrs[0], &config, 1, &num) == eglFalse || num == 0 {
		return 0, eglErr("eglChooseConfig")
	}
	return SurfaceConfig(config), nil
}

func (nativeDriver) CreateContext(d Display, c SurfaceConfig) (Context, error) {
	attrs := []int32{eglContextClientVer, 2, eglNone}
	ctx := eglCreateContext(uintptr(d), uintptr(c), eglNoContext, &attrs[0])
	if ctx == eglNoContext {
		return 0, eglErr("eglCreateContext")
	}
	return Context(ctx), nil
}

func (nativeDriver) CreatePbufferSurface(d Display, c SurfaceConfig, width, height int32) (Surface, error) {
	attrs := []int32{eglWidth, width, eglHeight, height, eglNone}
	s := eglCreatePbufferSurface(uintptr(d), uintptr(c), &attrs[0])
	if s == eglNoSurface {
		return 0, eglErr("eglCreatePbufferSurface")
	}
	return Surface(s), nil
}

func (nativeDriver) MakeCurrent(d Display, s Surface, c Context) error {
	if eglMakeCurrent(uintptr(d), uintptr(s), uintptr(s), uintptr(c)) == eglFalse {
		return eglErr("eglMakeCurrent")
	}
	return nil
}

func compileShader(shaderType uint32, src string) (uint32, error) {
	shader := glCreateShader(shaderType)

	source := append([]byte(src), 0)
	ptr := uintptr(unsafe.Pointer(&source[0]))
	glShaderSource(shader, 1, &ptr, nil)
	glCompileShader(shader)

	var status int32
	glGetShaderiv(shader, glCompileStatus, &status)
	if status == 0 {
		infoLog := make([]byte, 1024)
		var logLen int32
		glGetShaderInfoLog(shader, int32(len(infoLog)), &logLen, &infoLog[0])
		glDeleteShader(shader)
		return 0, fmt.Errorf("shader compilation failed: %s", infoLog[:logLen])
	}
	return shader, nil
}

func (nativeDriver) BuildProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vs, err := compileShader(glVertexShader, vertexSrc)
	if err != nil {
		return 0, err
	}
	defer glDeleteShader(vs)

	fs, err := compileShader(glFragmentShader, fragmentSrc)
	if err != nil {
		return 0, err
	}
	defer glDeleteShader(fs)

	program := glCreateProgram()
	glAttachShader(program, fs)
	glAttachShader(program, vs)
	glLinkProgram(program)

	var status int32
	glGetProgramiv(program, glLinkStatus, &status)
	if status == 0 {
		infoLog := make([]byte, 1024)
		var logLen int32
		glGetProgramInfoLog(program, int32(len(infoLog)), &logLen, &infoLog[0])
		glDeleteProgram(program)
		return 0, fmt.Errorf("program linking failed: %s", infoLog[:logLen])
	}
	return program, nil
}

func (nativeDriver) SetupQuad(program uint32, external bool, width, height int32) error {
	glUseProgram(program)

	positionName, texcoordName, samplerName := "in_position", "in_texcoord", "texture"
	if external {
		positionName, texcoordName, samplerName = "vPosition", "vYuvTexCoords", "yuvTexSampler"
	}

	position := glGetAttribLocation(program, positionName)
	texcoord := glGetAttribLocation(program, texcoordName)
	sampler := glGetUniformLocation(program, samplerName)
	if position < 0 || texcoord < 0 || sampler < 0 {
		return fmt.Errorf("program is missing quad attributes (%d, %d, %d)", position, texcoord, sampler)
	}

	glVertexAttribPointer(uint32(position), 2, glFloat, 0, 0, &positionVertices[0])
	glEnableVertexAttribArray(uint32(position))
	glVertexAttribPointer(uint32(texcoord), 2, glFloat, 0, 0, &texCoordVertices[0])
	glEnableVertexAttribArray(uint32(texcoord))
	glUniform1i(sampler, 0)
	glViewport(0, 0, width, height)

	if code := glGetError(); code != glNoError {
		return fmt.Errorf("quad setup failed: gl error %#x", code)
	}
	return nil
}

func (nativeDriver) CreateImage(d Display, clientBuffer uint64, preserved bool) (Image, error) {
	var attrs *int32
	if preserved {
		preservedAttrs := []int32{eglImagePreservedKHR, eglTrue, eglNone}
		attrs = &preservedAttrs[0]
	}
	img := eglCreateImageKHR(uintptr(d), eglNoContext, eglNativeBufferKHR, uintptr(clientBuffer), attrs)
	if img == 0 {
		return 0, eglErr("eglCreateImageKHR")
	}
	return Image(img), nil
}

func (nativeDriver) BindImageTexture(img Image, external bool) (uint32, error) {
	target := uint32(glTexture2D)
	if external {
		target = glTextureExternalOES
	}

	var tex uint32
	glGenTextures(1, &tex)
	glBindTexture(target, tex)
	if !external {
		glTexParameteri(target, glTextureMinFilter, glNearest)
		glTexParameteri(target, glTextureMagFilter, glNearest)
	}
	glEGLImageTargetTexture2DOES(target, uintptr(img))

	if code := glGetError(); code != glNoError {
		glDeleteTextures(1, &tex)
		return 0, fmt.Errorf("image texture bind failed: gl error %#x", code)
	}
	return tex, nil
}

func (nativeDriver) DrawQuad() {
	glDrawArrays(glTriangleFan, 0, 4)
}

func (nativeDriver) ReadPixels(width, height int32, dst []byte) error {
	if len(dst) < int(width)*int(height)*4 {
		return fmt.Errorf("readback buffer too small: %d < %d", len(dst), int(width)*int(height)*4)
	}
	glReadPixels(0, 0, width, height, glRGBA, glUnsignedByte, &dst[0])
	if code := glGetError(); code != glNoError {
		return fmt.Errorf("glReadPixels failed: gl error %#x", code)
	}
	return nil
}

func (nativeDriver) DeleteTexture(tex uint32) {
	glDeleteTextures(1, &tex)
}

func (nativeDriver) DestroyImage(d Display, img Image) error {
	if eglDestroyImageKHR(uintptr(d), uintptr(img)) == eglFalse {
		return eglErr("eglDestroyImageKHR")
	}
	return nil
}

func (nativeDriver) DeleteProgram(program uint32) {
	glDeleteProgram(program)
}

func (nativeDriver) ReleaseCurrent(d Display) error {
	if eglMakeCurrent(uintptr(d), eglNoSurface, eglNoSurface, eglNoContext) == eglFalse {
		return eglErr("eglMakeCurrent")
	}
	return nil
}

func (nativeDriver) DestroySurface(d Display, s Surface) error {
	if eglDestroySurface(uintptr(d), uintptr(s)) == eglFalse {
		return eglErr("eglDestroySurface")
	}
	return nil
}

func (nativeDriver) DestroyContext(d Display, c Context) error {
	if eglDestroyContext(uintptr(d), uintptr(c)) == eglFalse {
		return eglErr("eglDestroyContext")
	}
	return nil
}

func (nativeDriver) Terminate(d Display) error {
	if eglTerminate(uintptr(d)) == eglFalse {
		return eglErr("eglTerminate")
	}
	return nil
}
