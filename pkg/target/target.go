// Package target resolves how the benchmark target is opened and how
// large it is, for both regular files and block devices.
package target

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Flags returns the open(2) flags for a worker with the given access
// and I/O modes.
func Flags(write, direct, sync bool) int {
	flags := os.O_RDONLY
	if write {
		flags = os.O_WRONLY
	}
	if direct {
		flags |= unix.O_DIRECT
	}
	if sync {
		flags |= unix.O_SYNC
	}
	return flags
}

// Size reports the addressable byte size of a regular file or block
// device. Regular files report through Stat; block devices report a
// zero stat size, so their size comes from seeking to the end.
func Size(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if st.Mode().IsRegular() && st.Size() > 0 {
		return st.Size(), nil
	}
	return f.Seek(0, io.SeekEnd)
}

// Blocks reports how many whole blocks of the given size fit in the
// target.
func Blocks(path string, blockSize int) (int64, error) {
	if blockSize <= 0 {
		return 0, fmt.Errorf("invalid block size: %d", blockSize)
	}
	size, err := Size(path)
	if err != nil {
		return 0, err
	}
	n := size / int64(blockSize)
	if n <= 0 {
		return 0, fmt.Errorf("%s: too small for block size %d", path, blockSize)
	}
	return n, nil
}
