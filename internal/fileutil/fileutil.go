package fileutil

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"
)

// AvailableBytes reports the space available to unprivileged writers on the
// filesystem holding path.
func AvailableBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// EnsureFreeSpace fails when the filesystem holding dir has fewer than min bytes free.
func EnsureFreeSpace(dir string, min uint64) error {
	if min == 0 {
		return nil
	}
	free, err := AvailableBytes(dir)
	if err != nil {
		return err
	}
	if free < min {
		return fmt.Errorf("insufficient free space in %s: %d bytes available, %d required", dir, free, min)
	}
	return nil
}

// CommitFile flushes f to stable storage, closes it and renames it to dst.
// The parent directory is synced so the rename survives a crash. On failure
// the source file is removed.
func CommitFile(f *os.File, dst string) error {
	src := f.Name()
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(src)
		return fmt.Errorf("sync %s: %w", src, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(src)
		return fmt.Errorf("close %s: %w", src, err)
	}
	if err := os.Rename(src, dst); err != nil {
		_ = os.Remove(src)
		return fmt.Errorf("rename %s: %w", src, err)
	}
	return syncDir(filepath.Dir(dst))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync dir %s: %w", dir, err)
	}
	return nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DigestWriter forwards writes to an underlying writer while hashing and
// counting the bytes that were accepted.
type DigestWriter struct {
	w      io.Writer
	hasher hash.Hash
	n      int64
}

// NewDigestWriter wraps w with a BLAKE3 hasher.
func NewDigestWriter(w io.Writer) *DigestWriter {
	return &DigestWriter{w: w, hasher: blake3.New()}
}

func (d *DigestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if n > 0 {
		_, _ = d.hasher.Write(p[:n])
		d.n += int64(n)
	}
	return n, err
}

// Sum returns the hex digest of everything written so far.
func (d *DigestWriter) Sum() string {
	return hex.EncodeToString(d.hasher.Sum(nil))
}

// Size returns the number of bytes written so far.
func (d *DigestWriter) Size() int64 {
	return d.n
}

// DigestFile streams path through BLAKE3 and returns the hex digest and size.
func DigestFile(path string) (string, int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()

	hasher := blake3.New()
	n, err := io.Copy(hasher, in)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}
