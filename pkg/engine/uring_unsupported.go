//go:build !linux

package engine

import (
	"fmt"
	"os"
)

func newUringBackend(_ *os.File, _ bool) (backend, error) {
	return nil, fmt.Errorf("uring engine is only supported on Linux")
}
