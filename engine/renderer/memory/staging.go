package memory

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
)

const DefaultStagingFlags = AllocationSequentialWrite | AllocationMapped

/**
 * @brief A host-visible transfer source used for a single upload. Call Close
 * once the copy that reads from it has completed.
 */
type StagingBuffer struct {
	mm       *MemoryManager
	buffer   *AllocatedBuffer
	capacity uint64
}

func NewStagingBuffer(mm *MemoryManager, size uint64) (*StagingBuffer, error) {
	return NewStagingBufferWithFlags(mm, size, DefaultStagingFlags)
}

func NewStagingBufferWithFlags(mm *MemoryManager, size uint64, flags AllocationFlags) (*StagingBuffer, error) {
	buf, err := mm.CreateBuffer(size, UsageTransferSrc, ResidencyHostVisible, flags)
	if err != nil {
		return nil, err
	}
	return &StagingBuffer{mm: mm, buffer: buf, capacity: size}, nil
}

// Upload copies data into the staging memory. Nothing is copied when data does
// not fit.
func (s *StagingBuffer) Upload(data []byte) error {
	if !s.buffer.Valid() {
		return fmt.Errorf("upload into closed staging buffer")
	}
	if uint64(len(data)) > s.capacity {
		err := fmt.Errorf("%w: %d bytes into %d", core.ErrStagingOverflow, len(data), s.capacity)
		core.LogError(err.Error())
		return err
	}
	return s.mm.Write(s.buffer, 0, data)
}

func (s *StagingBuffer) Buffer() *AllocatedBuffer {
	return s.buffer
}

func (s *StagingBuffer) Capacity() uint64 {
	return s.capacity
}

// Close unmaps and frees the buffer. Safe to call more than once.
func (s *StagingBuffer) Close() error {
	if s == nil || !s.buffer.Valid() {
		return nil
	}
	s.mm.DestroyBuffer(s.buffer)
	return nil
}

// WithStagingBuffer runs fn with a fresh staging buffer and frees it on every
// exit path, panics included.
func WithStagingBuffer(mm *MemoryManager, size uint64, fn func(*StagingBuffer) error) error {
	s, err := NewStagingBuffer(mm, size)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
