package envfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// lockStaleAfter is how old a lock file may be before it is treated as
// abandoned and removed.
const lockStaleAfter = 10 * time.Minute

// Lock acquires a file lock next to the env file to prevent concurrent
// rewrites from separate invocations.
func (f *File) Lock() error {
	lockPath := f.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := os.Stat(lockPath); err == nil {
		if time.Since(info.ModTime()) > lockStaleAfter {
			os.Remove(lockPath)
		} else {
			return fmt.Errorf("%s is locked by another process (lock file: %s). "+
				"If this is an error, remove the lock file manually", f.path, lockPath)
		}
	}

	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(lockPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return nil
}

// Unlock releases the lock taken by Lock.
func (f *File) Unlock() error {
	if err := os.Remove(f.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (f *File) lockPath() string {
	return f.path + ".lock"
}
