package memory

import "fmt"

// BufferCopier records and submits a buffer to buffer copy, returning once the
// copy has completed on the device.
type BufferCopier interface {
	CopyBuffer(src, dst Buffer, srcOffset, dstOffset, size uint64) error
}

// UploadToArena stages data and copies it into a fresh slice of arena. If the
// copy fails the slice stays consumed until the arena is reset.
func UploadToArena(mm *MemoryManager, arena *BufferArena, copier BufferCopier, data []byte, alignment uint64) (BufferSlice, error) {
	size := uint64(len(data))
	if size == 0 {
		return BufferSlice{}, fmt.Errorf("upload of empty data")
	}

	slice, err := arena.Allocate(size, alignment)
	if err != nil {
		return BufferSlice{}, err
	}

	err = WithStagingBuffer(mm, size, func(staging *StagingBuffer) error {
		if err := staging.Upload(data); err != nil {
			return err
		}
		return copier.CopyBuffer(staging.Buffer().Handle(), slice.Buffer.Handle(), 0, slice.Offset, size)
	})
	if err != nil {
		return BufferSlice{}, fmt.Errorf("upload %d bytes: %w", size, err)
	}
	return slice, nil
}
