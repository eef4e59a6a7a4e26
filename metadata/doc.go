// Package metadata implements the wire-level metadata descriptor codec for
// softenc.
//
// Producers that own pixel storage outside the normal buffer flow (for
// example a platform graphics surface) deliver a small descriptor instead of
// raw pixels. Two descriptor shapes exist, discriminated by a leading tag:
//
//   - Native-window shape: a buffer handle plus a signed fence descriptor,
//     emitted by producers that track read-readiness with fences.
//   - Gralloc shape: a bare buffer handle, the legacy form with no fence and
//     no pixel format information.
//
// The byte layout is a compatibility contract with producers and must not
// change. All multi-byte fields are little-endian:
//
//	Native-window (16 bytes): tag u32 | handle u64 | fence i32
//	Gralloc       (12 bytes): tag u32 | handle u64
//
// Decoding happens exactly once at the extraction entry point; the rest of
// the pipeline works with the decoded Descriptor, never with raw descriptor
// bytes.
package metadata
