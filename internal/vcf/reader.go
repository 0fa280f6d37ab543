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

// maxLineBytes bounds one VCF line; deep multi-sample rows can run long.
const maxLineBytes = 64 * 1024 * 1024

// Reader streams records from a VCF text file, plain or gzip-compressed.
type Reader struct {
	h       *Header
	cols    *sampleCols
	sc      *bufio.Scanner
	closers []io.Closer
	lineNum int
}

// Open opens a VCF at path; "-" or "stdin" reads standard input, a ".gz"
// suffix selects gzip decompression. The header is parsed before Open
// returns.
func Open(path string) (*Reader, error) {
	var src io.Reader
	var closers []io.Closer
	switch path {
	case "-", "stdin":
		src = os.Stdin
	default:
		if strings.HasSuffix(path, ".bcf") || strings.HasSuffix(path, ".bcf.gz") {
			return nil, fmt.Errorf("binary BCF input is not supported: %s", path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, pfx.Err(err)
		}
		src = f
		closers = append(closers, f)
		if strings.HasSuffix(path, ".gz") {
			gz, err := gzip.NewReader(f)
			if err != nil {
				f.Close()
				return nil, pfx.Err(err)
			}
			src = gz
			closers = append([]io.Closer{gz}, closers...)
		}
	}
	return NewReader(src, closers...)
}

// NewReader parses the header from src and returns a record reader.
func NewReader(src io.Reader, closers ...io.Closer) (*Reader, error) {
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 1024*1024), maxLineBytes)

	r := &Reader{h: emptyHeader(), sc: sc, closers: closers}
	for sc.Scan() {
		r.lineNum++
		line := sc.Text()
		if strings.HasPrefix(line, "##") {
			if err := r.h.AddMetaLine(line); err != nil {
				return nil, err
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			if err := r.h.SetColumns(line); err != nil {
				return nil, err
			}
			r.cols = newSampleCols(r.h.samples)
			return r, nil
		}
		return nil, &ParseError{Line: r.lineNum, Field: "header", Message: "data line before #CHROM line"}
	}
	if err := sc.Err(); err != nil {
		return nil, pfx.Err(err)
	}
	return nil, &ParseError{Field: "header", Message: "missing #CHROM line"}
}

// Header returns the parsed header. Preludes mutate this same object;
// record parsing stays keyed to the file's original sample layout.
func (r *Reader) Header() *Header { return r.h }

// Read returns the next record, or io.EOF when the file is exhausted.
func (r *Reader) Read() (*Record, error) {
	for r.sc.Scan() {
		r.lineNum++
		line := r.sc.Text()
		if line == "" {
			continue
		}
		return ParseRecord(r.h, r.cols, line, r.lineNum)
	}
	if err := r.sc.Err(); err != nil {
		return nil, pfx.Err(err)
	}
	return nil, io.EOF
}

// Close releases the underlying file handles.
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
