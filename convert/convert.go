package convert

import "encoding/binary"

// YCbCrPlanes describes the layout of a source frame plane by plane. It is
// the flexible abstraction for any 4:2:0 layout: a planar source uses
// ChromaStep 1 with separate chroma planes, a semiplanar source uses
// ChromaStep 2 with Cb and Cr viewing the same interleaved plane one byte
// apart.
type YCbCrPlanes struct {
	Y          []byte
	Cb         []byte
	Cr         []byte
	YStride    int
	CStride    int
	ChromaStep int
}

// PlanarFrameSize returns the minimum destination capacity for a planar
// YUV 4:2:0 frame with the given destination stride and slice height. The
// final chroma row only needs width/2 bytes, which is why this is smaller
// than a full three-half-planes product.
func PlanarFrameSize(dstStride, dstVStride, width, height int) int {
	return dstStride*dstVStride + (width >> 1) +
		(dstStride>>1)*((dstVStride>>1)+(height>>1)-1)
}

// FlexYUVToPlanar converts a frame described by src into planar YUV 4:2:0 at
// the start of dst. The luma plane is copied row by row. Chroma rows take a
// direct copy when the source is planar with unit chroma step and half-luma
// chroma stride; any other layout, including interleaved chroma, goes
// through the element-wise fallback driven by the declared chroma step.
func FlexYUVToPlanar(dst []byte, dstStride, dstVStride int, src *YCbCrPlanes, width, height int) {
	dstU := dstVStride * dstStride
	dstV := dstU + (dstVStride>>1)*(dstStride>>1)

	sy, dy := 0, 0
	for y := height; y > 0; y-- {
		copy(dst[dy:dy+width], src.Y[sy:sy+width])
		dy += dstStride
		sy += src.YStride
	}

	if src.CStride == src.YStride>>1 && src.ChromaStep == 1 {
		// planar
		su, sv := 0, 0
		for y := height >> 1; y > 0; y-- {
			copy(dst[dstU:dstU+(width>>1)], src.Cb[su:su+(width>>1)])
			dstU += dstStride >> 1
			su += src.CStride
			copy(dst[dstV:dstV+(width>>1)], src.Cr[sv:sv+(width>>1)])
			dstV += dstStride >> 1
			sv += src.CStride
		}
		return
	}

	// arbitrary
	su, sv := 0, 0
	for y := height >> 1; y > 0; y-- {
		for x := width >> 1; x > 0; x-- {
			dst[dstU] = src.Cb[su]
			dst[dstV] = src.Cr[sv]
			dstU++
			dstV++
			su += src.ChromaStep
			sv += src.ChromaStep
		}
		dstU += (dstStride >> 1) - (width >> 1)
		dstV += (dstStride >> 1) - (width >> 1)
		su += src.CStride - (width>>1)*src.ChromaStep
		sv += src.CStride - (width>>1)*src.ChromaStep
	}
}

// SemiPlanarToPlanar de-interleaves a semiplanar 4:2:0 frame into planar
// layout. The interleaved chroma plane is consumed in 32-bit reads, packing
// the even byte lanes into one output plane and the odd lanes into the
// other. Width must be divisible by 4; callers ensure this, it is not
// validated here.
func SemiPlanarToPlanar(in, out []byte, width, height int) {
	ySize := width * height
	copy(out[:ySize], in[:ySize])

	outCb := out[ySize:]
	outCr := out[ySize+(ySize>>2):]
	src := in[ySize:]

	si, di := 0, 0
	for i := (height >> 1) * (width >> 2); i > 0; i-- {
		quad := binary.LittleEndian.Uint32(src[si:])
		si += 4

		outCb[di] = byte(quad)
		outCb[di+1] = byte(quad >> 16)
		outCr[di] = byte(quad >> 8)
		outCr[di+1] = byte(quad >> 24)
		di += 2
	}
}

// RGB32ToPlanar converts packed 32-bit RGB to planar YUV 4:2:0 using ITU-R
// BT.601 integer coefficients. The fourth channel is ignored. Chroma is
// sampled at even (x, y) sites only, so width and height must be even. bgr
// selects blue-first channel order; it is a parameter, never auto-detected.
//
// Using ITU-R BT.601-7 (03/2011)
//
//	2.5.1: Ey'  = ( 0.299*R + 0.587*G + 0.114*B)
//	2.5.2: ECr' = ( 0.701*R - 0.587*G - 0.114*B) / 1.402
//	       ECb' = (-0.299*R - 0.587*G + 0.886*B) / 1.772
//	2.5.3: Y  = 219 * Ey'  +  16
//	       Cr = 224 * ECr' + 128
//	       Cb = 224 * ECb' + 128
func RGB32ToPlanar(dst []byte, dstStride, dstVStride int, src []byte, width, height, srcStride int, bgr bool) {
	dstU := dstStride * dstVStride
	dstV := dstU + (dstStride>>1)*(dstVStride>>1)

	redOffset, blueOffset := 0, 2
	if bgr {
		redOffset, blueOffset = 2, 0
	}

	dy := 0
	srow := 0
	for y := 0; y < height; y++ {
		sp := srow
		for x := 0; x < width; x++ {
			red := int(src[sp+redOffset])
			green := int(src[sp+1])
			blue := int(src[sp+blueOffset])

			dst[dy+x] = byte(((red*65 + green*129 + blue*25 + 128) >> 8) + 16)

			if x&1 == 0 && y&1 == 0 {
				u := ((-red*38 - green*74 + blue*112 + 128) >> 8) + 128
				v := ((red*112 - green*94 - blue*18 + 128) >> 8) + 128
				dst[dstU+(x>>1)] = byte(u)
				dst[dstV+(x>>1)] = byte(v)
			}
			sp += 4
		}

		if y&1 == 0 {
			dstU += dstStride >> 1
			dstV += dstStride >> 1
		}
		srow += srcStride
		dy += dstStride
	}
}
