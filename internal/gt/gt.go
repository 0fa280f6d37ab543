// Package gt implements the packed genotype codec used by VCF records.
//
// Genotype calls are stored as packed signed integer codes, one per ploidy
// slot: code = (allele+1)<<1 | phase. A missing call decodes to allele -1.
// This is the same packing the record's FORMAT matrix uses internally, so a
// decoded view never needs to re-parse the sample column text.
package gt

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Missing is the allele index of an absent call ("." in VCF text).
const Missing = -1

// Allele is one ploidy slot of one sample's genotype call.
//
// Phased reports how this slot joins the previous one when rendering: "|"
// when true, "/" otherwise. The first slot's flag carries no meaning for
// display (there is no leading separator) but round-trips through the codec.
type Allele struct {
	Index  int // 0-based allele index, Missing if absent
	Phased bool
}

// Encode packs an allele into its integer code.
func Encode(a Allele) int {
	code := (a.Index + 1) << 1
	if a.Phased {
		code |= 1
	}
	return code
}

// Decode unpacks an integer code into an allele.
func Decode(code int) Allele {
	return Allele{
		Index:  (code >> 1) - 1,
		Phased: code&1 == 1,
	}
}

func (a Allele) String() string {
	if a.Index < 0 {
		return "."
	}
	return strconv.Itoa(a.Index)
}

// Call is the ordered genotype call of one sample.
type Call []Allele

// String renders the call in VCF text form. The first allele is printed
// without a separator; each subsequent allele picks its own separator from
// its own phase flag, so "0|1/1" is a valid rendering.
func (c Call) String() string {
	if len(c) == 0 {
		return "."
	}
	var sb strings.Builder
	sb.WriteString(c[0].String())
	for _, a := range c[1:] {
		if a.Phased {
			sb.WriteByte('|')
		} else {
			sb.WriteByte('/')
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}

// Codes packs the call into its integer codes.
func (c Call) Codes() []int {
	codes := make([]int, len(c))
	for i, a := range c {
		codes[i] = Encode(a)
	}
	return codes
}

// FromCodes unpacks integer codes into a call.
func FromCodes(codes []int) Call {
	call := make(Call, len(codes))
	for i, code := range codes {
		call[i] = Decode(code)
	}
	return call
}

// ParseCall parses VCF genotype text such as "0|1", "./.", or "1" into a
// call. The separator before each allele sets that allele's phase flag; the
// leading allele is always unphased in the parsed form.
func ParseCall(s string) (Call, error) {
	if s == "" {
		return nil, fmt.Errorf("empty genotype")
	}
	var call Call
	phased := false // no leading separator, first slot is unphased
	rest := s
	for {
		end := strings.IndexAny(rest, "|/")
		tok := rest
		if end >= 0 {
			tok = rest[:end]
		}
		a := Allele{Phased: phased}
		switch tok {
		case ".", "":
			a.Index = Missing
		default:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("bad allele %q in genotype %q", tok, s)
			}
			a.Index = idx
		}
		call = append(call, a)
		if end < 0 {
			return call, nil
		}
		phased = rest[end] == '|'
		rest = rest[end+1:]
	}
}

// View is an indexable, length-queryable window over every sample's decoded
// call for one record. Guest code may hold a view handle past the record
// borrow, so the decoded buffer sits behind a mutex; access is never truly
// concurrent but multiple live handles must stay consistent.
type View struct {
	mu    sync.Mutex
	calls []Call
}

// NewView copies the given calls into a shared view.
func NewView(calls []Call) *View {
	return &View{calls: calls}
}

// Len returns the number of samples in the view.
func (v *View) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.calls)
}

// At returns the call for the 0-based sample index i.
func (v *View) At(i int) (Call, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i < 0 || i >= len(v.calls) {
		return nil, fmt.Errorf("genotype index out of bounds: %d in len: %d", i, len(v.calls))
	}
	return v.calls[i], nil
}
