package math

import "golang.org/x/exp/constraints"

// Minimum offset alignments used when sub-allocating GPU buffers.
const (
	UniformBufferAlignment uint64 = 256
	StorageBufferAlignment uint64 = 256
	VertexBufferAlignment  uint64 = 4
	IndexBufferAlignment   uint64 = 4
)

// AlignUp rounds value up to the next multiple of alignment. Alignments of 0 or 1
// leave value untouched. Alignment does not have to be a power of two.
func AlignUp[T constraints.Unsigned](value, alignment T) T {
	if alignment <= 1 {
		return value
	}
	rem := value % alignment
	if rem == 0 {
		return value
	}
	return value + (alignment - rem)
}
