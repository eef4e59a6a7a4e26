// Package convert implements the color conversion routines that normalize
// native pixel layouts into the planar YUV 4:2:0 form an encoder core
// consumes.
//
// The routines are a stateless family, each total over its declared domain:
//
//   - FlexYUVToPlanar: any planar or semiplanar 4:2:0 layout described by an
//     explicit per-plane view, into planar.
//   - SemiPlanarToPlanar: interleaved-chroma 4:2:0 into planar via 32-bit
//     lane extraction. Width must be divisible by 4.
//   - RGB32ToPlanar: packed 32-bit RGB or BGR into planar using ITU-R BT.601
//     integer coefficients. Width and height must be even.
//
// All routines are allocation-free and perform no bounds checks beyond what
// the caller already guaranteed: the extraction path validates destination
// capacity once, before dispatch, and the pixel loops here stay unchecked.
package convert
