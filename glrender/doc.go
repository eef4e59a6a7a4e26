// Package glrender implements the GPU readback fallback for native buffers
// that cannot be CPU-mapped reliably.
//
// Some GPU/driver combinations do not expose a dependable CPU mapping for
// certain native buffer formats. On those platforms the only portable
// extraction strategy is to bind the native buffer as a GPU texture, render
// it through a pass-through shader into an offscreen pixel-buffer surface,
// and read the rendered RGBA pixels back into a CPU staging buffer. The
// staging buffer then goes through the normal RGB conversion routine. This
// is strictly slower than direct mapping and is only taken when the platform
// requires it.
//
// Path owns the render state as an explicit resource with an init/use/close
// lifecycle. Initialization happens once per encoder instance on first need;
// if any step fails the path becomes permanently unavailable rather than
// retrying per frame. Close tears it down exactly once and is safe when the
// path was never initialized.
//
// The EGL and GLES2 entry points are reached through the Driver interface.
// LoadDriver binds the real libraries at runtime via purego; tests inject a
// fake.
package glrender
