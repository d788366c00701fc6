// Package download streams HTTP response bodies to disk with optional
// checksum validation and progress reporting.
//
// [Handle] creates any missing parent directories, writes the body to a
// temporary file alongside the destination path, then atomically renames it
// on success:
//
//	err := download.Handle(ctx, resp.Body, resp.ContentLength, destPath, logger,
//		download.WithProgress(func(transferred, total int64) { ... }),
//	)
//
// Failures to prepare the destination wrap [ErrCreateDestination]; every
// failure after the destination exists wraps [ErrWrite].
//
// Most callers should use the higher-level
// [github.com/adamwoolhether/httper/v2/client] package, which invokes Handle
// from [client.DownloadRequest].
package download
