package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// errSourceChanged marks a copy whose source was rewritten while it was being read.
var errSourceChanged = errors.New("source changed during copy")

// RetryPolicy bounds how long transient copy failures are retried.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64
}

// DefaultRetryPolicy keeps retries well below a typical poll interval.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 100 * time.Millisecond,
	MaxInterval:     2 * time.Second,
	MaxElapsedTime:  10 * time.Second,
	MaxRetries:      5,
}

// FileCopier copies files on the local filesystem. The destination is
// written to a temp file in the same directory and renamed into place.
type FileCopier struct {
	retry RetryPolicy
}

// NewFileCopier returns a copier using the given retry policy.
func NewFileCopier(policy RetryPolicy) *FileCopier {
	return &FileCopier{retry: policy}
}

// Copy implements Copier.
func (c *FileCopier) Copy(ctx context.Context, src, dst string) (FileInfo, error) {
	var written FileInfo

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		info, err := copyOnce(src, dst)
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		written = info
		return nil
	}

	if err := backoff.Retry(operation, c.backOff(ctx)); err != nil {
		return FileInfo{}, fmt.Errorf("copy %s: %w", src, err)
	}
	return written, nil
}

func (c *FileCopier) backOff(ctx context.Context) backoff.BackOff {
	cfg := backoff.NewExponentialBackOff()
	cfg.InitialInterval = c.retry.InitialInterval
	cfg.MaxInterval = c.retry.MaxInterval
	cfg.MaxElapsedTime = c.retry.MaxElapsedTime
	cfg.Reset()

	var b backoff.BackOff = cfg
	if c.retry.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, c.retry.MaxRetries)
	}
	return backoff.WithContext(b, ctx)
}

func copyOnce(src, dst string) (FileInfo, error) {
	before, err := stat(src)
	if err != nil {
		return FileInfo{}, err
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FileInfo{}, err
	}

	in, err := os.Open(src)
	if err != nil {
		return FileInfo{}, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return FileInfo{}, err
	}
	cleanup := func() {
		_ = os.Remove(tmp.Name())
	}

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		cleanup()
		return FileInfo{}, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return FileInfo{}, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return FileInfo{}, err
	}

	after, err := stat(src)
	if err != nil {
		cleanup()
		return FileInfo{}, err
	}
	if sourceChanged(before, after) {
		cleanup()
		return FileInfo{}, errSourceChanged
	}

	if err := os.Chmod(tmp.Name(), before.mode.Perm()); err != nil {
		cleanup()
		return FileInfo{}, err
	}
	if err := os.Chtimes(tmp.Name(), before.ModTime, before.ModTime); err != nil {
		cleanup()
		return FileInfo{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		cleanup()
		return FileInfo{}, err
	}

	return FileInfo{
		Path:    dst,
		Size:    before.Size,
		ModTime: before.ModTime,
		Inode:   before.Inode,
	}, nil
}

type sourceInfo struct {
	FileInfo
	mode os.FileMode
}

func stat(path string) (sourceInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return sourceInfo{}, err
	}
	if !st.Mode().IsRegular() {
		return sourceInfo{}, fmt.Errorf("%s is not a regular file", path)
	}
	return sourceInfo{
		FileInfo: FileInfo{
			Path:    path,
			Size:    st.Size(),
			ModTime: st.ModTime(),
			Inode:   inodeOf(st),
		},
		mode: st.Mode(),
	}, nil
}

func sourceChanged(orig, now sourceInfo) bool {
	if now.Inode != 0 && orig.Inode != 0 && now.Inode != orig.Inode {
		return true
	}
	if !now.ModTime.Equal(orig.ModTime) {
		return true
	}
	return now.Size != orig.Size
}

func isTransient(err error) bool {
	return errors.Is(err, errSourceChanged) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETIMEDOUT)
}
