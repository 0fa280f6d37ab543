package vcf

import (
	"fmt"
	"strings"
)

// fixedColumns are the eight mandatory record columns, in order. Anything
// after FORMAT on the #CHROM line is a sample name.
var fixedColumns = []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

// Header is the declarative metadata block of a variant file: tag
// dictionaries, filters, contigs, and sample names.
//
// A header is owned by one run. It is read-mostly: preludes may mutate it
// (add tags, subset samples) before the record loop starts, and each
// mutation invalidates only the affected type-cache entries.
type Header struct {
	// metaLines holds every "##" line in input order, verbatim, so an
	// untouched header renders byte-identical. Mutations append here.
	metaLines []string

	infos   map[string]*TagDef
	formats map[string]*TagDef
	filters map[string]string // filter id -> description

	contigs   []string
	contigIdx map[string]int

	samples   []string
	sampleIdx map[string]int

	infoCache   *TypeCache
	formatCache *TypeCache
}

// NewHeader returns an empty header with a VCFv4.2 fileformat line.
func NewHeader() *Header {
	h := emptyHeader()
	h.metaLines = append(h.metaLines, "##fileformat=VCFv4.2")
	return h
}

func emptyHeader() *Header {
	h := &Header{
		infos:     make(map[string]*TagDef),
		formats:   make(map[string]*TagDef),
		filters:   map[string]string{"PASS": "All filters passed"},
		contigIdx: make(map[string]int),
		sampleIdx: make(map[string]int),
	}
	h.infoCache = newTypeCache(NamespaceInfo, func(tag string) (*TagDef, bool) {
		def, ok := h.infos[tag]
		return def, ok
	})
	h.formatCache = newTypeCache(NamespaceFormat, func(tag string) (*TagDef, bool) {
		def, ok := h.formats[tag]
		return def, ok
	})
	return h
}

// AddMetaLine parses and records one "##" header line.
func (h *Header) AddMetaLine(raw string) error {
	if !strings.HasPrefix(raw, "##") {
		return &ParseError{Field: "header", Message: fmt.Sprintf("expected ## line, got %q", raw)}
	}
	body := raw[2:]
	switch {
	case strings.HasPrefix(body, "INFO=<"):
		def, err := parseTagDef(body[len("INFO=<"):])
		if err != nil {
			return &ParseError{Field: "INFO", Message: err.Error()}
		}
		h.infos[def.ID] = def
		h.infoCache.Invalidate(def.ID)
	case strings.HasPrefix(body, "FORMAT=<"):
		def, err := parseTagDef(body[len("FORMAT=<"):])
		if err != nil {
			return &ParseError{Field: "FORMAT", Message: err.Error()}
		}
		h.formats[def.ID] = def
		h.formatCache.Invalidate(def.ID)
	case strings.HasPrefix(body, "FILTER=<"):
		fields, err := parseStructured(strings.TrimSuffix(body[len("FILTER=<"):], ">"))
		if err != nil {
			return &ParseError{Field: "FILTER", Message: err.Error()}
		}
		h.filters[fields["ID"]] = fields["Description"]
	case strings.HasPrefix(body, "contig=<"):
		fields, err := parseStructured(strings.TrimSuffix(body[len("contig=<"):], ">"))
		if err != nil {
			return &ParseError{Field: "contig", Message: err.Error()}
		}
		h.internContig(fields["ID"])
	}
	h.metaLines = append(h.metaLines, raw)
	return nil
}

// SetColumns parses the #CHROM line, registering sample names in order.
func (h *Header) SetColumns(line string) error {
	cols := strings.Split(line, "\t")
	if len(cols) < len(fixedColumns) {
		return &ParseError{Field: "#CHROM", Message: "too few columns"}
	}
	for i, want := range fixedColumns {
		if cols[i] != want {
			return &ParseError{Field: "#CHROM", Message: fmt.Sprintf("column %d is %q, want %q", i+1, cols[i], want)}
		}
	}
	if len(cols) > len(fixedColumns) {
		if cols[len(fixedColumns)] != "FORMAT" {
			return &ParseError{Field: "#CHROM", Message: "sample columns without FORMAT column"}
		}
		for _, name := range cols[len(fixedColumns)+1:] {
			h.sampleIdx[name] = len(h.samples)
			h.samples = append(h.samples, name)
		}
	}
	return nil
}

// parseTagDef parses the body of an INFO=< or FORMAT=< line (without the
// trailing ">").
func parseTagDef(body string) (*TagDef, error) {
	fields, err := parseStructured(strings.TrimSuffix(body, ">"))
	if err != nil {
		return nil, err
	}
	id := fields["ID"]
	if id == "" {
		return nil, fmt.Errorf("missing ID")
	}
	typ, err := ParseValueType(fields["Type"])
	if err != nil {
		return nil, fmt.Errorf("tag %s: %w", id, err)
	}
	card, err := ParseCardinality(fields["Number"])
	if err != nil {
		return nil, fmt.Errorf("tag %s: %w", id, err)
	}
	return &TagDef{ID: id, Type: typ, Card: card, Description: fields["Description"]}, nil
}

// parseStructured splits `ID=DP,Number=1,Description="a, b"` into a map,
// honoring quoted values.
func parseStructured(body string) (map[string]string, error) {
	fields := make(map[string]string)
	for len(body) > 0 {
		eq := strings.IndexByte(body, '=')
		if eq < 0 {
			return nil, fmt.Errorf("malformed structured line near %q", body)
		}
		key := body[:eq]
		body = body[eq+1:]
		var val string
		if strings.HasPrefix(body, `"`) {
			end := strings.IndexByte(body[1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("unterminated quote in %s", key)
			}
			val = body[1 : 1+end]
			body = body[2+end:]
			body = strings.TrimPrefix(body, ",")
		} else {
			end := strings.IndexByte(body, ',')
			if end < 0 {
				val, body = body, ""
			} else {
				val, body = body[:end], body[end+1:]
			}
		}
		fields[key] = val
	}
	return fields, nil
}

// InfoType resolves an INFO tag's declared type and cardinality through the
// memoizing cache.
func (h *Header) InfoType(tag string) (ValueType, Cardinality, error) {
	return h.infoCache.Resolve(tag)
}

// FormatType resolves a FORMAT tag's declared type and cardinality.
func (h *Header) FormatType(tag string) (ValueType, Cardinality, error) {
	return h.formatCache.Resolve(tag)
}

// FormatTags returns the declared FORMAT tag ids in stable (sorted by
// declaration) order of the meta lines.
func (h *Header) FormatTags() []string {
	tags := make([]string, 0, len(h.formats))
	for _, raw := range h.metaLines {
		if strings.HasPrefix(raw, "##FORMAT=<") {
			if def, err := parseTagDef(raw[len("##FORMAT=<"):]); err == nil {
				if _, ok := h.formats[def.ID]; ok {
					tags = append(tags, def.ID)
				}
			}
		}
	}
	return tags
}

// Samples returns the sample names in column order.
func (h *Header) Samples() []string {
	out := make([]string, len(h.samples))
	copy(out, h.samples)
	return out
}

// SampleIndex resolves a sample name to its 0-based column index.
func (h *Header) SampleIndex(name string) (int, error) {
	idx, ok := h.sampleIdx[name]
	if !ok {
		return 0, &UnknownSampleError{Sample: name}
	}
	return idx, nil
}

// HasFilter reports whether the filter name is declared.
func (h *Header) HasFilter(name string) bool {
	_, ok := h.filters[name]
	return ok
}

// internContig resolves a contig name to its reference id, adding it to the
// dictionary on first sight (records may name contigs the header omits).
func (h *Header) internContig(name string) int {
	if id, ok := h.contigIdx[name]; ok {
		return id
	}
	id := len(h.contigs)
	h.contigIdx[name] = id
	h.contigs = append(h.contigs, name)
	return id
}

// ContigName resolves a reference id back to its contig name; empty string
// when the id is unset or unknown.
func (h *Header) ContigName(rid int) string {
	if rid < 0 || rid >= len(h.contigs) {
		return ""
	}
	return h.contigs[rid]
}

// AddInfo declares a new INFO tag, appending a synthesized meta line and
// invalidating the tag's cache entry.
func (h *Header) AddInfo(def TagDef) error {
	return h.addTag(NamespaceInfo, def)
}

// AddFormat declares a new FORMAT tag.
func (h *Header) AddFormat(def TagDef) error {
	return h.addTag(NamespaceFormat, def)
}

func (h *Header) addTag(ns Namespace, def TagDef) error {
	if def.ID == "" {
		return fmt.Errorf("add %s: missing ID", ns)
	}
	line := fmt.Sprintf("##%s=<ID=%s,Number=%s,Type=%s,Description=%q>",
		ns, def.ID, def.Card, def.Type, def.Description)
	d := def
	switch ns {
	case NamespaceInfo:
		h.infos[def.ID] = &d
		h.infoCache.Invalidate(def.ID)
	case NamespaceFormat:
		h.formats[def.ID] = &d
		h.formatCache.Invalidate(def.ID)
	}
	h.metaLines = append(h.metaLines, line)
	return nil
}

// SubsetSamples narrows the sample columns to the named subset, in the given
// order. Every name must already be a sample.
func (h *Header) SubsetSamples(names []string) error {
	newIdx := make(map[string]int, len(names))
	for i, name := range names {
		if _, ok := h.sampleIdx[name]; !ok {
			return &UnknownSampleError{Sample: name}
		}
		newIdx[name] = i
	}
	h.samples = append([]string(nil), names...)
	h.sampleIdx = newIdx
	return nil
}

// Clone returns a deep copy of the header. The writer takes a clone so that
// later prelude mutations of the reader's header cannot drift under it.
func (h *Header) Clone() *Header {
	c := emptyHeader()
	c.metaLines = append([]string(nil), h.metaLines...)
	for k, v := range h.infos {
		d := *v
		c.infos[k] = &d
	}
	for k, v := range h.formats {
		d := *v
		c.formats[k] = &d
	}
	c.filters = make(map[string]string, len(h.filters))
	for k, v := range h.filters {
		c.filters[k] = v
	}
	c.contigs = append([]string(nil), h.contigs...)
	for k, v := range h.contigIdx {
		c.contigIdx[k] = v
	}
	c.samples = append([]string(nil), h.samples...)
	for k, v := range h.sampleIdx {
		c.sampleIdx[k] = v
	}
	return c
}

// Render returns the full header text, trailing newline included.
func (h *Header) Render() string {
	var sb strings.Builder
	for _, line := range h.metaLines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString(strings.Join(fixedColumns, "\t"))
	if len(h.samples) > 0 {
		sb.WriteString("\tFORMAT")
		for _, s := range h.samples {
			sb.WriteByte('\t')
			sb.WriteString(s)
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}
