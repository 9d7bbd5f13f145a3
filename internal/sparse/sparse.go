// Package sparse implements hole-preserving and hole-creating copy
// paths via the Linux SEEK_DATA/SEEK_HOLE lseek whence values.
// Grounded on original_source/src/sparse.rs.
package sparse

import (
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/gocp/gocp/internal/cerr"
	"github.com/gocp/gocp/internal/engine"
	"github.com/gocp/gocp/internal/options"
)

const bufSize = 256 * 1024

// dataRegion is a contiguous non-hole extent.
type dataRegion struct {
	offset int64
	length int64
}

// CopySparse attempts a hole-aware copy of size bytes from src to dst
// (both positioned at 0). It returns true if it performed the copy
// (preserving or synthesizing holes), false if the caller should fall
// back to a dense engine copy.
func CopySparse(src, dst *os.File, size int64, srcPath, dstPath string, mode options.SparseMode, sink engine.Sink) (bool, error) {
	switch mode {
	case options.SparseNever:
		return false, nil
	case options.SparseAlways:
		if err := copyByZeroDetection(src, dst, srcPath, dstPath, size, sink); err != nil {
			return false, err
		}
		return true, nil
	default: // SparseAuto
		return copyAuto(src, dst, size, srcPath, dstPath, sink)
	}
}

func copyAuto(src, dst *os.File, size int64, srcPath, dstPath string, sink engine.Sink) (bool, error) {
	regions := scanSparseRegions(src, size)
	if len(regions) == 0 {
		return false, nil
	}

	var dataBytes int64
	for _, r := range regions {
		dataBytes += r.length
	}
	if dataBytes >= size {
		// No holes found; let the engine do a dense copy.
		return false, nil
	}

	if err := dst.Truncate(size); err != nil {
		return false, cerr.Write(dstPath, err)
	}

	buf := make([]byte, bufSize)
	for _, r := range regions {
		if _, err := src.Seek(r.offset, io.SeekStart); err != nil {
			return false, cerr.Seek(srcPath, err)
		}
		if _, err := dst.Seek(r.offset, io.SeekStart); err != nil {
			return false, cerr.Seek(dstPath, err)
		}

		remaining := r.length
		for remaining > 0 {
			toRead := bufSize
			if int64(toRead) > remaining {
				toRead = int(remaining)
			}
			n, err := src.Read(buf[:toRead])
			if n > 0 {
				if _, werr := dst.Write(buf[:n]); werr != nil {
					return false, cerr.Write(dstPath, werr)
				}
				remaining -= int64(n)
				sink.Inc(int64(n))
			}
			if err == io.EOF || n == 0 {
				break
			}
			if err != nil {
				return false, cerr.Read(srcPath, err)
			}
		}
	}

	if size > dataBytes {
		sink.Inc(size - dataBytes)
	}

	return true, nil
}

// scanSparseRegions walks the file with alternating SEEK_DATA/SEEK_HOLE
// probes, accumulating data extents. Any negative return (notably
// ENXIO, "no more data") is treated as end-of-file; the descriptor's
// position is reset to zero before returning so callers reopen or
// reuse the fd from a known offset.
func scanSparseRegions(f *os.File, size int64) []dataRegion {
	fd := int(f.Fd())
	var regions []dataRegion
	var pos int64

	for {
		dataStart, err := unix.Seek(fd, pos, unix.SEEK_DATA)
		if err != nil || dataStart < 0 {
			break // ENXIO: rest of file is a hole
		}

		holeStart, err := unix.Seek(fd, dataStart, unix.SEEK_HOLE)
		end := size
		if err == nil && holeStart >= 0 {
			end = holeStart
		}

		if end > dataStart {
			regions = append(regions, dataRegion{offset: dataStart, length: end - dataStart})
		}

		pos = end
		if pos >= size {
			break
		}
	}

	_, _ = unix.Seek(fd, 0, unix.SEEK_SET)
	return regions
}

// copyByZeroDetection implements --sparse=always: stream the source in
// fixed-size buffers, skipping the write (leaving a hole) for any
// buffer that is entirely zero.
func copyByZeroDetection(src, dst *os.File, srcPath, dstPath string, size int64, sink engine.Sink) error {
	if err := dst.Truncate(size); err != nil {
		return cerr.Write(dstPath, err)
	}

	buf := make([]byte, bufSize)
	var offset int64

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if !allZero(buf[:n]) {
				if _, serr := dst.Seek(offset, io.SeekStart); serr != nil {
					return cerr.Seek(dstPath, serr)
				}
				if _, werr := dst.Write(buf[:n]); werr != nil {
					return cerr.Write(dstPath, werr)
				}
			}
			offset += int64(n)
			sink.Inc(int64(n))
		}
		if err == io.EOF || n == 0 {
			return nil
		}
		if err != nil {
			return cerr.Read(srcPath, err)
		}
	}
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
