package memory

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
)

// BufferSlice is a non-owning view into a buffer.
type BufferSlice struct {
	Buffer *AllocatedBuffer
	Offset uint64
	Size   uint64
}

/**
 * @brief Linear sub-allocator over one backing buffer. Slices come out in
 * increasing, non-overlapping order and are only reclaimed all at once by Reset.
 */
type BufferArena struct {
	mm         *MemoryManager
	buffer     *AllocatedBuffer
	totalSize  uint64
	nextOffset uint64
}

func NewBufferArena(mm *MemoryManager, totalSize uint64, usage Usage, residency Residency, flags AllocationFlags) (*BufferArena, error) {
	buf, err := mm.CreateBuffer(totalSize, usage, residency, flags)
	if err != nil {
		return nil, fmt.Errorf("buffer arena: %w", err)
	}
	return &BufferArena{mm: mm, buffer: buf, totalSize: totalSize}, nil
}

// Allocate returns the next size bytes starting at an offset aligned to
// alignment (0 is treated as 1). On failure the arena is left untouched.
func (a *BufferArena) Allocate(size, alignment uint64) (BufferSlice, error) {
	if alignment == 0 {
		alignment = 1
	}
	aligned := math.AlignUp(a.nextOffset, alignment)
	if aligned < a.nextOffset || aligned > a.totalSize || a.totalSize-aligned < size {
		return BufferSlice{}, fmt.Errorf("%w: %d bytes (align %d) at offset %d of %d",
			core.ErrArenaOutOfSpace, size, alignment, a.nextOffset, a.totalSize)
	}
	a.nextOffset = aligned + size
	return BufferSlice{Buffer: a.buffer, Offset: aligned, Size: size}, nil
}

// Reset makes the whole arena available again. Every slice handed out before
// becomes invalid, so the caller must first wait for all GPU work that reads
// them (a device wait idle is the simplest way).
func (a *BufferArena) Reset() {
	a.nextOffset = 0
}

func (a *BufferArena) RemainingSize() uint64 {
	return a.totalSize - a.nextOffset
}

func (a *BufferArena) TotalSize() uint64 {
	return a.totalSize
}

func (a *BufferArena) Offset() uint64 {
	return a.nextOffset
}

func (a *BufferArena) BackingBuffer() *AllocatedBuffer {
	return a.buffer
}

func (a *BufferArena) Destroy() {
	a.mm.DestroyBuffer(a.buffer)
	a.nextOffset = 0
}
