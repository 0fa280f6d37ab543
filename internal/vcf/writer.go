package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/klauspost/compress/gzip"
)

// Writer encodes records against a fixed header snapshot. The header text
// is written lazily before the first record so a run that matches nothing
// still emits a valid file.
type Writer struct {
	h           *Header
	bw          *bufio.Writer
	closers     []io.Closer
	wroteHeader bool
}

// Create opens a structured VCF writer at path; "-" or "" writes standard
// output, a ".gz" suffix selects gzip compression. Binary ".bcf" output is
// not supported and fails up front.
func Create(path string, h *Header) (*Writer, error) {
	if strings.HasSuffix(path, ".bcf") || strings.HasSuffix(path, ".bcf.gz") {
		return nil, fmt.Errorf("binary BCF output is not supported: %s", path)
	}
	var dst io.Writer = os.Stdout
	var closers []io.Closer
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return nil, pfx.Err(err)
		}
		dst = f
		closers = append(closers, f)
		if strings.HasSuffix(path, ".gz") {
			gz := gzip.NewWriter(f)
			dst = gz
			closers = append([]io.Closer{gz}, closers...)
		}
	}
	return NewWriter(dst, h, closers...), nil
}

// NewWriter wraps dst with a record encoder bound to a snapshot of h.
func NewWriter(dst io.Writer, h *Header, closers ...io.Closer) *Writer {
	return &Writer{h: h.Clone(), bw: bufio.NewWriter(dst), closers: closers}
}

// Header returns the writer's header snapshot.
func (w *Writer) Header() *Header { return w.h }

// Write encodes one record. Records parsed against a drifted header (sample
// subsets, tags added by a prelude) are translated by rendering against the
// writer's own header.
func (w *Writer) Write(rec *Record) error {
	if !w.wroteHeader {
		if _, err := w.bw.WriteString(w.h.Render()); err != nil {
			return pfx.Err(err)
		}
		w.wroteHeader = true
	}
	if _, err := w.bw.WriteString(rec.Render(w.h)); err != nil {
		return pfx.Err(err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return pfx.Err(err)
	}
	return nil
}

// Close flushes buffered output, writing the header if no record ever did,
// and closes the underlying handles.
func (w *Writer) Close() error {
	if !w.wroteHeader {
		if _, err := w.bw.WriteString(w.h.Render()); err != nil {
			return pfx.Err(err)
		}
		w.wroteHeader = true
	}
	if err := w.bw.Flush(); err != nil {
		return pfx.Err(err)
	}
	for _, c := range w.closers {
		if err := c.Close(); err != nil {
			return pfx.Err(err)
		}
	}
	return nil
}
