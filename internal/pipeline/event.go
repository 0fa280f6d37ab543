package pipeline

import "github.com/varlab/vexpress/internal/vcf"

// Kind tags the per-record outcome.
type Kind int

const (
	// KindSuppressed drops the record: no filter passed.
	KindSuppressed Kind = iota
	// KindRecord emits the (post-mutation) record through the structured
	// writer.
	KindRecord
	// KindText emits one rendered template line.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindSuppressed:
		return "suppressed"
	case KindRecord:
		return "record"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Event is the outcome of evaluating one input record, produced exactly once
// per record.
type Event struct {
	Kind Kind
	Rec  *vcf.Record
	Text string
}
