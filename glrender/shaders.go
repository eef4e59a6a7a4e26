package glrender

// Pass-through shader pair for 2D-texture sources (packed RGB native
// buffers).
const (
	vertexShader = "precision mediump float;\n" +
		"attribute vec2 in_position;\n" +
		"attribute vec2 in_texcoord;\n" +
		"varying vec2 texcoord;\n" +
		"\n" +
		"void main()\n" +
		"{\n" +
		"   gl_Position = vec4(in_position, 0.0, 1.0);\n" +
		"   texcoord = in_texcoord;\n" +
		"}\n"

	fragmentShader = "precision mediump float;\n" +
		"varying vec2 texcoord;\n" +
		"uniform sampler2D texture;\n" +
		"\n" +
		"void main()\n" +
		"{\n" +
		"   gl_FragColor = texture2D(texture, texcoord);\n" +
		"}\n"
)

// Pass-through shader pair for external-image sources (opaque platform
// formats sampled through the external-OES extension).
const (
	vertexShaderExternal = "attribute vec4 vPosition;\n" +
		"attribute vec2 vYuvTexCoords;\n" +
		"varying vec2 yuvTexCoords;\n" +
		"void main() {\n" +
		"  yuvTexCoords = vYuvTexCoords;\n" +
		"  gl_Position = vPosition;\n" +
		"}\n"

	fragmentShaderExternal = "#extension GL_OES_EGL_image_external : require\n" +
		"precision mediump float;\n" +
		"uniform samplerExternalOES yuvTexSampler;\n" +
		"varying vec2 yuvTexCoords;\n" +
		"void main() {\n" +
		"  gl_FragColor = texture2D(yuvTexSampler, yuvTexCoords);\n" +
		"}\n"
)

// Full-surface quad vertices, drawn as a triangle fan.
var positionVertices = []float32{
	-1.0, 1.0,
	-1.0, -1.0,
	1.0, -1.0,
	1.0, 1.0,
}

var texCoordVertices = []float32{
	0.0, 1.0,
	0.0, 0.0,
	1.0, 0.0,
	1.0, 1.0,
}
