package download

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandle_CreatesParentDirs(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a", "b", "file.txt")
	body := "hello, disk"

	if err := Handle(t.Context(), strings.NewReader(body), int64(len(body)), dest, discardLogger()); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading dest: %v", err)
	}
	if string(got) != body {
		t.Errorf("exp %q, got %q", body, got)
	}

	entries, err := os.ReadDir(filepath.Dir(dest))
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("exp only the destination file, got %d entries", len(entries))
	}
}

func TestHandle_ProgressInitialAndFinal(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.bin")
	body := bytes.Repeat([]byte{0xAB}, 3*ChunkSize+7)

	var calls [][2]int64
	err := Handle(t.Context(), bytes.NewReader(body), int64(len(body)), dest, discardLogger(),
		WithProgress(func(transferred, total int64) {
			calls = append(calls, [2]int64{transferred, total})
		}),
	)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(calls) < 2 {
		t.Fatalf("exp at least initial and final reports, got %v", calls)
	}
	if first := calls[0]; first != [2]int64{0, int64(len(body))} {
		t.Errorf("exp initial report (0, %d), got %v", len(body), first)
	}
	if last := calls[len(calls)-1]; last != [2]int64{int64(len(body)), int64(len(body))} {
		t.Errorf("exp final report (%d, %d), got %v", len(body), len(body), last)
	}
}

func TestHandle_CreateFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing blocker: %v", err)
	}

	// A regular file sits where a parent directory is needed.
	dest := filepath.Join(blocker, "child", "file.txt")

	err := Handle(t.Context(), strings.NewReader("data"), 4, dest, discardLogger())
	if !errors.Is(err, ErrCreateDestination) {
		t.Errorf("exp ErrCreateDestination, got %v", err)
	}
}

func TestHandle_ContentLengthMismatch(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.txt")

	err := Handle(t.Context(), strings.NewReader("short"), 100, dest, discardLogger())
	if !errors.Is(err, ErrWrite) {
		t.Errorf("exp ErrWrite, got %v", err)
	}
	if !errors.Is(err, ErrContentLengthMismatch) {
		t.Errorf("exp ErrContentLengthMismatch, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("exp no destination file, stat err: %v", statErr)
	}
}

func TestHandle_Checksum(t *testing.T) {
	body := "checksummed content"
	sum := sha256.Sum256([]byte(body))
	good := hex.EncodeToString(sum[:])

	testCases := []struct {
		name     string
		expected string
		expErr   error
	}{
		{name: "match", expected: good},
		{name: "mismatch", expected: strings.Repeat("0", len(good)), expErr: ErrChecksumMismatch},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "file.txt")

			err := Handle(t.Context(), strings.NewReader(body), int64(len(body)), dest, discardLogger(),
				WithChecksum(sha256.New(), tc.expected),
			)
			if tc.expErr == nil && err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}
			if tc.expErr != nil && !errors.Is(err, tc.expErr) {
				t.Fatalf("exp %v, got: %v", tc.expErr, err)
			}
		})
	}
}

func TestHandle_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	dest := filepath.Join(t.TempDir(), "file.txt")

	err := Handle(ctx, strings.NewReader("data"), 4, dest, discardLogger())
	if !errors.Is(err, ErrDownloadCancelled) {
		t.Errorf("exp ErrDownloadCancelled, got %v", err)
	}
}

func TestHandle_SkipExisting(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(dest, []byte("original"), 0o644); err != nil {
		t.Fatalf("seeding dest: %v", err)
	}

	if err := Handle(t.Context(), strings.NewReader("replacement"), -1, dest, discardLogger(), WithSkipExisting()); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := os.ReadFile(dest)
	if string(got) != "original" {
		t.Errorf("exp file untouched, got %q", got)
	}
}

func TestOptions_Validation(t *testing.T) {
	testCases := []struct {
		name string
		opt  Option
	}{
		{name: "nil hash", opt: WithChecksum(nil, "abc")},
		{name: "empty checksum", opt: WithChecksum(sha256.New(), "")},
		{name: "nil progress", opt: WithProgress(nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var opts options
			if err := tc.opt(&opts); err == nil {
				t.Error("exp error, got nil")
			}
		})
	}
}
