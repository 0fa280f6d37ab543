package vcf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/varlab/vexpress/internal/gt"
)

// sampleCols maps sample names to their column positions as laid out in the
// input file. Records keep a shared reference so that sample access stays
// correct even after a prelude subsets the header's sample list.
type sampleCols struct {
	names []string
	idx   map[string]int
}

func newSampleCols(names []string) *sampleCols {
	sc := &sampleCols{
		names: append([]string(nil), names...),
		idx:   make(map[string]int, len(names)),
	}
	for i, n := range names {
		sc.idx[n] = i
	}
	return sc
}

// InfoField is one key (optionally key=value) entry of a record's INFO
// column, in input order.
type InfoField struct {
	Key      string
	Value    string
	HasValue bool
}

// Record is one row of a variant file. Field text is kept verbatim where
// possible so an untouched record renders byte-identical to its input.
type Record struct {
	hdr  *Header
	cols *sampleCols

	rid int   // index into the header contig dictionary, -1 when unset
	pos int64 // 0-based start
	id  string
	// alleles[0] is REF; the rest are the alternate alleles.
	alleles []string
	qual    string // raw text, "." when missing
	filters []string
	info    []InfoField

	formatKeys []string
	// samples holds the raw per-file-column FORMAT values, parallel to
	// formatKeys.
	samples [][]string
}

// ParseRecord parses one data line against the header. cols carries the
// file's original sample layout; lineNum is used in errors.
func ParseRecord(h *Header, cols *sampleCols, line string, lineNum int) (*Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{Line: lineNum, Field: "record", Message: "fewer than 8 columns"}
	}
	rec := &Record{hdr: h, cols: cols, rid: -1}

	rec.rid = h.internContig(fields[0])

	pos1, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || pos1 < 1 {
		return nil, &ParseError{Line: lineNum, Field: "POS", Message: fmt.Sprintf("bad position %q", fields[1])}
	}
	rec.pos = pos1 - 1

	rec.id = fields[2]
	rec.alleles = []string{fields[3]}
	if fields[4] != "." && fields[4] != "" {
		rec.alleles = append(rec.alleles, strings.Split(fields[4], ",")...)
	}
	rec.qual = fields[5]
	if fields[6] != "." && fields[6] != "" {
		rec.filters = strings.Split(fields[6], ";")
	}
	if fields[7] != "." && fields[7] != "" {
		for _, part := range strings.Split(fields[7], ";") {
			if k, v, ok := strings.Cut(part, "="); ok {
				rec.info = append(rec.info, InfoField{Key: k, Value: v, HasValue: true})
			} else {
				rec.info = append(rec.info, InfoField{Key: part})
			}
		}
	}
	if len(fields) > 8 {
		rec.formatKeys = strings.Split(fields[8], ":")
		want := len(cols.names)
		if len(fields)-9 != want {
			return nil, &ParseError{Line: lineNum, Field: "FORMAT",
				Message: fmt.Sprintf("%d sample columns, header declares %d", len(fields)-9, want)}
		}
		rec.samples = make([][]string, want)
		for i, raw := range fields[9:] {
			rec.samples[i] = strings.Split(raw, ":")
		}
	}
	return rec, nil
}

// Header returns the header this record was parsed against.
func (r *Record) Header() *Header { return r.hdr }

// Chrom resolves the record's reference id to a contig name; empty string
// when unset.
func (r *Record) Chrom() string { return r.hdr.ContigName(r.rid) }

// Pos returns the 0-based start position.
func (r *Record) Pos() int64 { return r.pos }

// SetPos sets the 0-based start position.
func (r *Record) SetPos(p int64) { r.pos = p }

// End returns the 0-based position one past the reference allele.
func (r *Record) End() int64 { return r.pos + int64(len(r.alleles[0])) }

// ID returns the identifier column text ("." when unset).
func (r *Record) ID() string { return r.id }

// SetID replaces the identifier.
func (r *Record) SetID(id string) {
	if id == "" {
		id = "."
	}
	r.id = id
}

// Ref returns the reference allele.
func (r *Record) Ref() string { return r.alleles[0] }

// SetRef replaces allele 0 only, preserving the alternate alleles.
func (r *Record) SetRef(ref string) { r.alleles[0] = ref }

// Alt returns the alternate alleles (possibly empty).
func (r *Record) Alt() []string {
	out := make([]string, len(r.alleles)-1)
	copy(out, r.alleles[1:])
	return out
}

// SetAlt replaces alleles 1..N, preserving REF.
func (r *Record) SetAlt(alts []string) {
	r.alleles = append(r.alleles[:1], alts...)
}

// Qual returns the quality score; ok is false when the column is missing.
func (r *Record) Qual() (float64, bool) {
	if r.qual == "." || r.qual == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(r.qual, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// SetQual sets the quality score.
func (r *Record) SetQual(q float64) {
	r.qual = strconv.FormatFloat(q, 'g', -1, 64)
}

// Filters returns the active filter names (empty when the column is ".").
func (r *Record) Filters() []string {
	return append([]string(nil), r.filters...)
}

// SetFilters replaces the active filter set.
func (r *Record) SetFilters(names []string) {
	r.filters = append([]string(nil), names...)
}

// FirstFilter returns the first active filter name, if any.
func (r *Record) FirstFilter() (string, bool) {
	if len(r.filters) == 0 {
		return "", false
	}
	return r.filters[0], true
}

// InfoKeys returns the record's INFO tag names in input order.
func (r *Record) InfoKeys() []string {
	keys := make([]string, len(r.info))
	for i, f := range r.info {
		keys[i] = f.Key
	}
	return keys
}

// InfoRaw returns the raw text of an INFO field. present is false when the
// record does not carry the tag at all; hasValue is false for bare flags.
func (r *Record) InfoRaw(tag string) (raw string, present, hasValue bool) {
	for _, f := range r.info {
		if f.Key == tag {
			return f.Value, true, f.HasValue
		}
	}
	return "", false, false
}

// InfoInts parses an Integer INFO field into its values.
func (r *Record) InfoInts(tag string) ([]int, bool, error) {
	raw, present, hasValue := r.InfoRaw(tag)
	if !present || !hasValue || raw == "." {
		return nil, present, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "." {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, true, fmt.Errorf("INFO %s: bad integer %q", tag, p)
		}
		out = append(out, n)
	}
	return out, true, nil
}

// InfoFloats parses a Float INFO field into its values.
func (r *Record) InfoFloats(tag string) ([]float64, bool, error) {
	raw, present, hasValue := r.InfoRaw(tag)
	if !present || !hasValue || raw == "." {
		return nil, present, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		if p == "." {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, true, fmt.Errorf("INFO %s: bad float %q", tag, p)
		}
		out = append(out, f)
	}
	return out, true, nil
}

// InfoStrings parses a String INFO field into its comma-separated values.
func (r *Record) InfoStrings(tag string) ([]string, bool) {
	raw, present, hasValue := r.InfoRaw(tag)
	if !present || !hasValue {
		return nil, present
	}
	return strings.Split(raw, ","), true
}

// InfoFlag reports whether a Flag INFO tag is present.
func (r *Record) InfoFlag(tag string) bool {
	_, present, _ := r.InfoRaw(tag)
	return present
}

func (r *Record) setInfoRaw(tag, value string, hasValue bool) {
	for i, f := range r.info {
		if f.Key == tag {
			r.info[i] = InfoField{Key: tag, Value: value, HasValue: hasValue}
			return
		}
	}
	r.info = append(r.info, InfoField{Key: tag, Value: value, HasValue: hasValue})
}

// SetInfoInts writes an Integer INFO field, replacing any existing value and
// appending the tag otherwise.
func (r *Record) SetInfoInts(tag string, vals []int) {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	r.setInfoRaw(tag, strings.Join(parts, ","), true)
}

// SetInfoFloats writes a Float INFO field.
func (r *Record) SetInfoFloats(tag string, vals []float64) {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	r.setInfoRaw(tag, strings.Join(parts, ","), true)
}

// SetInfoStrings writes a String INFO field.
func (r *Record) SetInfoStrings(tag string, vals []string) {
	r.setInfoRaw(tag, strings.Join(vals, ","), true)
}

// SetInfoFlag sets or clears a Flag tag's presence.
func (r *Record) SetInfoFlag(tag string, on bool) {
	if on {
		for _, f := range r.info {
			if f.Key == tag {
				return
			}
		}
		r.info = append(r.info, InfoField{Key: tag})
		return
	}
	r.ClearInfo(tag)
}

// ClearInfo removes an INFO field if present.
func (r *Record) ClearInfo(tag string) {
	for i, f := range r.info {
		if f.Key == tag {
			r.info = append(r.info[:i], r.info[i+1:]...)
			return
		}
	}
}

// FormatKeys returns the record's FORMAT column keys.
func (r *Record) FormatKeys() []string {
	return append([]string(nil), r.formatKeys...)
}

// SampleField returns the raw value of tag for the file column of the named
// sample; ok is false when the record lacks the tag or the sample lacks a
// value for it.
func (r *Record) SampleField(name, tag string) (string, bool) {
	col, ok := r.cols.idx[name]
	if !ok {
		return "", false
	}
	return r.sampleFieldAt(col, tag)
}

func (r *Record) sampleFieldAt(col int, tag string) (string, bool) {
	ki := -1
	for i, k := range r.formatKeys {
		if k == tag {
			ki = i
			break
		}
	}
	if ki < 0 || col < 0 || col >= len(r.samples) {
		return "", false
	}
	vals := r.samples[col]
	if ki >= len(vals) {
		// trailing fields may be dropped in VCF sample columns
		return "", false
	}
	return vals[ki], true
}

// GTCalls decodes the genotype column for every sample of the current
// header, in header sample order.
func (r *Record) GTCalls() ([]gt.Call, error) {
	calls := make([]gt.Call, 0, len(r.hdr.samples))
	for _, name := range r.hdr.samples {
		raw, ok := r.SampleField(name, "GT")
		if !ok || raw == "" {
			calls = append(calls, gt.Call{{Index: gt.Missing}})
			continue
		}
		call, err := gt.ParseCall(raw)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", name, err)
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// SetGTCall re-encodes one sample's genotype column.
func (r *Record) SetGTCall(name string, call gt.Call) error {
	col, ok := r.cols.idx[name]
	if !ok {
		return &UnknownSampleError{Sample: name}
	}
	ki := -1
	for i, k := range r.formatKeys {
		if k == "GT" {
			ki = i
			break
		}
	}
	if ki < 0 {
		return &UnknownTagError{Namespace: NamespaceFormat, Tag: "GT"}
	}
	if ki < len(r.samples[col]) {
		r.samples[col][ki] = call.String()
	}
	return nil
}

// Render writes the record as one VCF line (no trailing newline) against
// the given header: sample columns are emitted in that header's sample
// order, which is how schema drift from sample subsetting is translated.
func (r *Record) Render(h *Header) string {
	var sb strings.Builder
	sb.WriteString(r.Chrom())
	sb.WriteByte('\t')
	sb.WriteString(strconv.FormatInt(r.pos+1, 10))
	sb.WriteByte('\t')
	sb.WriteString(r.id)
	sb.WriteByte('\t')
	sb.WriteString(r.alleles[0])
	sb.WriteByte('\t')
	if len(r.alleles) > 1 {
		sb.WriteString(strings.Join(r.alleles[1:], ","))
	} else {
		sb.WriteByte('.')
	}
	sb.WriteByte('\t')
	sb.WriteString(r.qual)
	sb.WriteByte('\t')
	if len(r.filters) > 0 {
		sb.WriteString(strings.Join(r.filters, ";"))
	} else {
		sb.WriteByte('.')
	}
	sb.WriteByte('\t')
	if len(r.info) > 0 {
		for i, f := range r.info {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(f.Key)
			if f.HasValue {
				sb.WriteByte('=')
				sb.WriteString(f.Value)
			}
		}
	} else {
		sb.WriteByte('.')
	}
	if len(h.samples) > 0 && len(r.formatKeys) > 0 {
		sb.WriteByte('\t')
		sb.WriteString(strings.Join(r.formatKeys, ":"))
		for _, name := range h.samples {
			sb.WriteByte('\t')
			col, ok := r.cols.idx[name]
			if !ok || col >= len(r.samples) {
				sb.WriteByte('.')
				continue
			}
			sb.WriteString(strings.Join(r.samples[col], ":"))
		}
	}
	return sb.String()
}
