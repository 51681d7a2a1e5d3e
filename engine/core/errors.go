package core

import (
	"errors"
	"math"
)

// InfiniteTimeout is passed to fence waits and image acquisition.
const InfiniteTimeout uint64 = math.MaxUint64

var (
	ErrAllocationFailed   = errors.New("gpu memory allocation failed")
	ErrArenaOutOfSpace    = errors.New("buffer arena out of space")
	ErrStagingOverflow    = errors.New("upload larger than staging buffer")
	ErrBufferOverflow     = errors.New("write past end of buffer")
	ErrSyncObjectCreation = errors.New("failed to create synchronization object")
	ErrSceneGraphCycle    = errors.New("scene graph reparent would create a cycle")
	ErrNodeOutOfRange     = errors.New("scene node index out of range")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrInvalidConfig      = errors.New("invalid configuration")
)
