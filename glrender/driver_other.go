//go:build !linux || (!amd64 && !arm64)

package glrender

import "fmt"

// LoadDriver is only implemented where the platform EGL/GLES2 libraries can
// be loaded at runtime. Everywhere else the render path reports itself
// unavailable and extraction falls back to failing the frame.
func LoadDriver() (Driver, error) {
	return nil, fmt.Errorf("%w: no EGL/GLES2 driver on this platform", ErrUnavailable)
}
