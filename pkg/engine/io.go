package engine

import (
	"fmt"
	"os"
)

// backend issues positioned block I/O against a single open target
// handle. One backend per worker; handles are never shared between
// workers, so backends need no locking.
type backend interface {
	// do transfers exactly len(buf) bytes at the given byte offset. A
	// short transfer is an error.
	do(buf []byte, off int64) error
	close() error
}

// syncBackend uses plain positioned read/write syscalls, one per call.
type syncBackend struct {
	f     *os.File
	write bool
}

func (b *syncBackend) do(buf []byte, off int64) error {
	var n int
	var err error
	if b.write {
		n, err = b.f.WriteAt(buf, off)
	} else {
		n, err = b.f.ReadAt(buf, off)
	}
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short transfer: %d of %d bytes at offset %d", n, len(buf), off)
	}
	return nil
}

func (b *syncBackend) close() error {
	return b.f.Close()
}
