package memory

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
)

// Usage is a bit set describing how a buffer is bound.
type Usage uint32

const (
	UsageTransferSrc Usage = 1 << iota
	UsageTransferDst
	UsageUniform
	UsageStorage
	UsageIndex
	UsageVertex
)

// Residency selects where the backing memory lives.
type Residency uint8

const (
	ResidencyDeviceLocal Residency = iota
	ResidencyHostVisible
)

func (r Residency) String() string {
	if r == ResidencyHostVisible {
		return "host-visible"
	}
	return "device-local"
}

type AllocationFlags uint32

const (
	/** @brief Host writes are sequential (memcpy style), never random access reads. */
	AllocationSequentialWrite AllocationFlags = 1 << iota
	/** @brief Keep the memory mapped for the whole lifetime of the buffer. */
	AllocationMapped
)

type BufferCreateInfo struct {
	Size      uint64
	Usage     Usage
	Residency Residency
	Flags     AllocationFlags
}

// Buffer is a backend buffer together with its memory.
type Buffer interface {
	Size() uint64
	// Map makes the memory host addressable. Only valid for host-visible buffers.
	Map() ([]byte, error)
	Unmap()
	// Mapped returns the mapped range, or nil when the buffer is not mapped.
	Mapped() []byte
}

// Allocator creates and frees backend buffers.
type Allocator interface {
	CreateBuffer(info BufferCreateInfo) (Buffer, error)
	DestroyBuffer(buffer Buffer)
}

/** @brief A buffer owned by a MemoryManager. The zero value is an empty, already freed buffer. */
type AllocatedBuffer struct {
	handle Buffer
	info   BufferCreateInfo
}

func (b *AllocatedBuffer) Handle() Buffer {
	if b == nil {
		return nil
	}
	return b.handle
}

func (b *AllocatedBuffer) Info() BufferCreateInfo {
	return b.info
}

func (b *AllocatedBuffer) Size() uint64 {
	return b.info.Size
}

func (b *AllocatedBuffer) Valid() bool {
	return b != nil && b.handle != nil
}

// MemoryManager owns the allocator for its lifetime and tracks every live buffer.
type MemoryManager struct {
	allocator Allocator
	live      map[*AllocatedBuffer]struct{}
}

func NewMemoryManager(allocator Allocator) (*MemoryManager, error) {
	if allocator == nil {
		err := fmt.Errorf("memory manager requires an allocator")
		core.LogError(err.Error())
		return nil, err
	}
	return &MemoryManager{
		allocator: allocator,
		live:      make(map[*AllocatedBuffer]struct{}),
	}, nil
}

// CreateBuffer allocates a buffer. With AllocationMapped the buffer is mapped
// right away and stays mapped until it is destroyed.
func (mm *MemoryManager) CreateBuffer(size uint64, usage Usage, residency Residency, flags AllocationFlags) (*AllocatedBuffer, error) {
	if size == 0 {
		err := fmt.Errorf("%w: zero sized buffer", core.ErrAllocationFailed)
		core.LogError(err.Error())
		return nil, err
	}
	if flags&AllocationMapped != 0 && residency != ResidencyHostVisible {
		err := fmt.Errorf("%w: persistently mapped buffers must be host visible", core.ErrAllocationFailed)
		core.LogError(err.Error())
		return nil, err
	}

	info := BufferCreateInfo{Size: size, Usage: usage, Residency: residency, Flags: flags}
	handle, err := mm.allocator.CreateBuffer(info)
	if err != nil {
		err = fmt.Errorf("%w: %d bytes %s: %w", core.ErrAllocationFailed, size, residency, err)
		core.LogError(err.Error())
		return nil, err
	}

	if flags&AllocationMapped != 0 {
		if _, err := handle.Map(); err != nil {
			mm.allocator.DestroyBuffer(handle)
			err = fmt.Errorf("%w: persistent map: %w", core.ErrAllocationFailed, err)
			core.LogError(err.Error())
			return nil, err
		}
	}

	buf := &AllocatedBuffer{handle: handle, info: info}
	mm.live[buf] = struct{}{}
	return buf, nil
}

// DestroyBuffer frees buf and clears its handle. Destroying an already destroyed
// buffer is a no-op. buf must have been created by this manager.
func (mm *MemoryManager) DestroyBuffer(buf *AllocatedBuffer) {
	if !buf.Valid() {
		return
	}
	if buf.handle.Mapped() != nil {
		buf.handle.Unmap()
	}
	mm.allocator.DestroyBuffer(buf.handle)
	delete(mm.live, buf)
	buf.handle = nil
}

// Write copies data into buf at offset through a host mapping. Persistently
// mapped buffers are written in place; others are mapped for the duration of the copy.
func (mm *MemoryManager) Write(buf *AllocatedBuffer, offset uint64, data []byte) error {
	if !buf.Valid() {
		return fmt.Errorf("write to destroyed buffer")
	}
	end := offset + uint64(len(data))
	if end < offset || end > buf.info.Size {
		return fmt.Errorf("%w: %d bytes at offset %d into %d byte buffer", core.ErrBufferOverflow, len(data), offset, buf.info.Size)
	}

	mapped := buf.handle.Mapped()
	if mapped != nil {
		copy(mapped[offset:end], data)
		return nil
	}

	mapped, err := buf.handle.Map()
	if err != nil {
		return fmt.Errorf("map buffer: %w", err)
	}
	copy(mapped[offset:end], data)
	buf.handle.Unmap()
	return nil
}

func (mm *MemoryManager) LiveBuffers() int {
	return len(mm.live)
}

// Close frees any buffer still alive. Every such buffer is a leak and is reported.
func (mm *MemoryManager) Close() {
	for buf := range mm.live {
		core.LogWarn("memory manager: releasing leaked %d byte %s buffer", buf.info.Size, buf.info.Residency)
		mm.DestroyBuffer(buf)
	}
}
