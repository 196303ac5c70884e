//go:build linux

package engine

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/godzie44/go-uring/uring"
)

// uringBackend issues each block transfer through io_uring with a
// single-entry ring: one SQE queued, submitted, and one CQE awaited
// per call. Depth stays at one so the worker loop keeps the same
// one-operation-per-iteration cancellation granularity as the sync
// backend.
type uringBackend struct {
	f     *os.File
	ring  *uring.Ring
	write bool
}

func newUringBackend(f *os.File, write bool) (backend, error) {
	ring, err := uring.New(1)
	if err != nil {
		return nil, fmt.Errorf("failed to setup io_uring: %w", err)
	}
	return &uringBackend{f: f, ring: ring, write: write}, nil
}

func (b *uringBackend) do(buf []byte, off int64) error {
	var op uring.Operation
	if b.write {
		op = uring.Write(b.f.Fd(), buf, uint64(off))
	} else {
		op = uring.Read(b.f.Fd(), buf, uint64(off))
	}
	if err := b.ring.QueueSQE(op, 0, 0); err != nil {
		return err
	}
	for {
		_, err := b.ring.Submit()
		if err == nil {
			break
		}
		if !isEINTR(err) {
			return err
		}
	}

	var cqe *uring.CQEvent
	var err error
	for {
		cqe, err = b.ring.WaitCQEvents(1)
		if err == nil || !isEINTR(err) {
			break
		}
	}
	if err != nil {
		return err
	}
	defer b.ring.SeenCQE(cqe)

	if cqe.Res < 0 {
		return syscall.Errno(-cqe.Res)
	}
	if int(cqe.Res) != len(buf) {
		return fmt.Errorf("short transfer: %d of %d bytes at offset %d", cqe.Res, len(buf), off)
	}
	return nil
}

func (b *uringBackend) close() error {
	b.ring.Close()
	return b.f.Close()
}

func isEINTR(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EINTR) {
		return true
	}
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) {
		return sysErr.Err == syscall.EINTR
	}
	return false
}
