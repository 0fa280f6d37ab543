package pipeline

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/klauspost/compress/gzip"

	"github.com/varlab/vexpress/internal/vcf"
)

// Sink routes outcomes to exactly one destination, fixed at construction:
// a structured VCF writer when no template is configured, a line-oriented
// text writer otherwise. An event of the wrong kind is a ConfigError, not a
// per-record error.
type Sink struct {
	vcfw    *vcf.Writer
	text    *bufio.Writer
	closers []io.Closer
}

// structuredSuffixes mark an output path as an explicit request for
// structured variant output.
var structuredSuffixes = []string{".vcf", ".vcf.gz", ".bcf", ".bcf.gz"}

func isStructuredPath(path string) bool {
	for _, s := range structuredSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// NewSink builds the output side of a run. output of "" or "-" means
// stdout; a ".gz" suffix compresses. templated selects text mode — combined
// with a structured output path that is a construction-time conflict.
func NewSink(output string, templated bool, hdr *vcf.Header) (*Sink, error) {
	if !templated {
		w, err := vcf.Create(output, hdr)
		if err != nil {
			return nil, err
		}
		return &Sink{vcfw: w}, nil
	}
	if isStructuredPath(output) {
		return nil, &ConfigError{
			Reason: "a template renders text lines but the output path requests structured variant output: " + output,
		}
	}
	var dst io.Writer = os.Stdout
	var closers []io.Closer
	if output != "" && output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return nil, pfx.Err(err)
		}
		dst = f
		closers = append(closers, f)
		if strings.HasSuffix(output, ".gz") {
			gz := gzip.NewWriter(f)
			dst = gz
			closers = append([]io.Closer{gz}, closers...)
		}
	}
	return &Sink{text: bufio.NewWriter(dst), closers: closers}, nil
}

// Emit routes one outcome. Suppressed outcomes are dropped silently.
func (s *Sink) Emit(ev Event) error {
	switch ev.Kind {
	case KindSuppressed:
		return nil
	case KindRecord:
		if s.vcfw == nil {
			return &ConfigError{Reason: "record outcome routed to a text sink"}
		}
		return s.vcfw.Write(ev.Rec)
	case KindText:
		if s.text == nil {
			return &ConfigError{Reason: "text outcome routed to the structured sink"}
		}
		if _, err := s.text.WriteString(ev.Text); err != nil {
			return pfx.Err(err)
		}
		if err := s.text.WriteByte('\n'); err != nil {
			return pfx.Err(err)
		}
		return nil
	}
	return &ConfigError{Reason: "unknown outcome kind"}
}

// Close flushes and closes the destination.
func (s *Sink) Close() error {
	if s.vcfw != nil {
		return s.vcfw.Close()
	}
	if err := s.text.Flush(); err != nil {
		return pfx.Err(err)
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			return pfx.Err(err)
		}
	}
	return nil
}
