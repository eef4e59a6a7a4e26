package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNativeWindow(t *testing.T) {
	src := EncodeNativeWindow(0xDEADBEEF42, 7)

	desc, err := Decode(src)
	require.NoError(t, err)
	assert.Equal(t, KindNativeWindow, desc.Kind)
	assert.Equal(t, uint64(0xDEADBEEF42), desc.Handle)
	assert.Equal(t, int32(7), desc.FenceFD)
}

func TestDecodeNativeWindowNoFence(t *testing.T) {
	src := EncodeNativeWindow(1, -1)

	desc, err := Decode(src)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), desc.FenceFD)
}

func TestDecodeGralloc(t *testing.T) {
	src := EncodeGralloc(99)

	desc, err := Decode(src)
	require.NoError(t, err)
	assert.Equal(t, KindGralloc, desc.Kind)
	assert.Equal(t, uint64(99), desc.Handle)
	assert.Equal(t, int32(-1), desc.FenceFD)
}

func TestDecodeUnknownTag(t *testing.T) {
	src := make([]byte, NativeDescriptorSize)
	src[0] = 0x7F

	_, err := Decode(src)
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestDecodeTruncated(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
	}{
		{
			name: "empty",
			src:  nil,
		},
		{
			name: "tag_only_partial",
			src:  []byte{2, 0, 0},
		},
		{
			name: "native_one_byte_short",
			src:  EncodeNativeWindow(5, -1)[:NativeDescriptorSize-1],
		},
		{
			name: "gralloc_one_byte_short",
			src:  EncodeGralloc(5)[:GrallocDescriptorSize-1],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.src)
			assert.ErrorIs(t, err, ErrTruncated)
		})
	}
}

func TestDecodeExactSizes(t *testing.T) {
	// A descriptor sliced to exactly its declared size must decode without
	// reading out of bounds.
	native := EncodeNativeWindow(11, 3)[:NativeDescriptorSize]
	desc, err := Decode(native)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), desc.Handle)

	gralloc := EncodeGralloc(12)[:GrallocDescriptorSize]
	desc, err = Decode(gralloc)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), desc.Handle)
}

func TestConsumeFence(t *testing.T) {
	src := EncodeNativeWindow(4, 9)

	ConsumeFence(src)

	desc, err := Decode(src)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), desc.FenceFD, "fence field must be invalidated in place")
}

func TestConsumeFenceGrallocNoop(t *testing.T) {
	src := EncodeGralloc(4)
	want := append([]byte(nil), src...)

	ConsumeFence(src)

	assert.Equal(t, want, src, "gralloc descriptors carry no fence field")
}
