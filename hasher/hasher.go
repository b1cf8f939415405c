package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"
)

const (
	bufferSmallSize      = 32 * 1024
	bufferLargeSize      = 128 * 1024
	largeBufferThreshold = 256 * 1024
)

var bufferSmallPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, bufferSmallSize)
		return &buf
	},
}

var bufferLargePool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, bufferLargeSize)
		return &buf
	},
}

// SHA256 computes the hex-encoded SHA-256 of the file at path, reading it in
// fixed-size chunks so peak memory stays bounded regardless of file size.
func SHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	bufferPool := &bufferSmallPool
	if info, statErr := file.Stat(); statErr == nil && info.Size() >= largeBufferThreshold {
		bufferPool = &bufferLargePool
	}
	bufferPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufferPtr)
	buffer := *bufferPtr

	h := sha256.New()
	for {
		n, readErr := file.Read(buffer)
		if n > 0 {
			h.Write(buffer[:n])
		}
		if readErr != nil {
			if readErr != io.EOF {
				return "", readErr
			}
			break
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
