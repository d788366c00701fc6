package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adamwoolhether/httper/v2/client/progress"
)

// Handle streams body to a temp file in the directory of destPath, which is
// renamed onto destPath on success. Missing parent directories are created.
// On any error the temp file is removed.
func Handle(ctx context.Context, body io.Reader, contentLength int64, destPath string, logger *slog.Logger, optFns ...Option) error {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return fmt.Errorf("applying option: %w", err)
		}
	}

	if opts.skipExisting {
		if _, err := os.Stat(destPath); err == nil {
			logger.Info("skipping existing file", "path", destPath)
			return nil
		}
	}

	file, err := createTemp(destPath)
	if err != nil {
		return err
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil {
				logger.Error("failed to remove temp file", "error", err)
			}
		}
	}()

	var writer io.Writer = file
	if opts.checksum != nil {
		writer = io.MultiWriter(writer, opts.checksum)
	}

	var pw *progress.Writer
	if opts.progressFn != nil {
		pw = progress.NewWriter(writer, contentLength, opts.progressFn, opts.progressOpts...)
		writer = pw
	}

	n, err := io.CopyBuffer(writer, &contextReader{ctx: ctx, r: body}, make([]byte, ChunkSize))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %w: %w", ErrWrite, ErrDownloadCancelled, err)
		}

		return fmt.Errorf("%w: copying file body: %w", ErrWrite, err)
	}

	if contentLength >= 0 && n != contentLength {
		return fmt.Errorf("%w: %w", ErrWrite, &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
		})
	}

	if err := opts.checksum.verify(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("%w: syncing temp file: %w", ErrWrite, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: closing temp file: %w", ErrWrite, err)
	}
	if err := os.Rename(file.Name(), destPath); err != nil {
		return fmt.Errorf("%w: renaming temp file: %w", ErrWrite, err)
	}

	successful = true

	if pw != nil {
		pw.Finish()
	}

	return nil
}

// createTemp makes sure the destination directory exists and opens a temp
// file inside it.
func createTemp(destPath string) (*os.File, error) {
	dir := filepath.Dir(destPath)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating parent directories: %w", ErrCreateDestination, err)
	}

	if fi, err := os.Stat(destPath); err == nil && fi.IsDir() {
		return nil, &Error{Err: ErrCreateDestination, Detail: destPath + " is a directory"}
	}

	file, err := os.CreateTemp(dir, ".httper-dl-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating temp file: %w", ErrCreateDestination, err)
	}

	return file, nil
}

// contextReader stops a copy as soon as ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}

	return cr.r.Read(p)
}
