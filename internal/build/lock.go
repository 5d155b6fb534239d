package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 100 * time.Millisecond

// lockBuild takes the lock of a build folder, waiting for a concurrent run
// on the same folder to finish.
func lockBuild(ctx context.Context, buildFolder string) (unlock func(), err error) {
	if err = os.MkdirAll(filepath.Dir(buildFolder), 0o755); err != nil {
		return nil, err
	}
	return lockFile(ctx, buildFolder+".lock")
}

func lockFile(ctx context.Context, path string) (unlock func(), err error) {
	lock := flock.New(path)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, fmt.Errorf("cannot lock %s", path)
	}
	return func() { lock.Unlock() }, nil
}
