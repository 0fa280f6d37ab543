// Package bind wraps one variant record in a guest-facing binding: a static
// field registry plus typed info/format/sample lookups. A binding is a
// borrow, not an owner — it is released when its record's evaluation ends,
// and any guest-held reference errors after that.
package bind

import (
	"fmt"

	"github.com/varlab/vexpress/internal/gt"
	"github.com/varlab/vexpress/internal/script"
	"github.com/varlab/vexpress/internal/vcf"
)

// Variant is the binding over one record. Implements script.Binding.
type Variant struct {
	rec *vcf.Record
	hdr *vcf.Header

	released bool
	// view is built lazily and may be retained by guest code past Release.
	view *gt.View
}

// New borrows rec for one evaluation scope.
func New(rec *vcf.Record, hdr *vcf.Header) *Variant {
	return &Variant{rec: rec, hdr: hdr}
}

// Release ends the borrow. Every later access through this binding fails
// with ErrBindingReleased; an already-returned genotype view stays usable.
func (v *Variant) Release() {
	v.released = true
	v.rec = nil
}

func (v *Variant) borrow() error {
	if v.released {
		return ErrBindingReleased
	}
	return nil
}

// Field resolves a registered field name to its current value.
func (v *Variant) Field(name string) (script.Value, error) {
	if err := v.borrow(); err != nil {
		return nil, err
	}
	f, ok := fields[name]
	if !ok {
		return nil, &FieldNotFoundError{Field: name}
	}
	return f.get(v)
}

// SetField writes a registered mutable field.
func (v *Variant) SetField(name string, val script.Value) error {
	if err := v.borrow(); err != nil {
		return err
	}
	f, ok := fields[name]
	if !ok {
		return &FieldNotFoundError{Field: name}
	}
	if f.set == nil {
		return fmt.Errorf("field %q is read-only", name)
	}
	return f.set(v, val)
}

// Info resolves an INFO tag. Dispatch follows the declared type and
// cardinality: Flag is a presence boolean; a scalar tag yields its scalar; an
// explicit 1-based index selects one element; anything else yields the full
// list. A declared-but-absent tag is guest nil, not an error.
func (v *Variant) Info(tag string, index int) (script.Value, error) {
	if err := v.borrow(); err != nil {
		return nil, err
	}
	typ, card, err := v.hdr.InfoType(tag)
	if err != nil {
		return nil, err
	}
	if typ == vcf.TypeFlag {
		return script.Bool(v.rec.InfoFlag(tag)), nil
	}
	raw, present, hasValue := v.rec.InfoRaw(tag)
	if !present || !hasValue {
		return script.Null{}, nil
	}
	vals, err := parseTyped(raw, typ)
	if err != nil {
		return nil, fmt.Errorf("INFO %s: %w", tag, err)
	}
	if index > 0 {
		if index > len(vals) {
			return script.Null{}, nil
		}
		return vals[index-1], nil
	}
	if card.IsScalar() && len(vals) == 1 {
		return vals[0], nil
	}
	return vals, nil
}

// Format resolves a FORMAT tag across every sample of the current header: a
// flat list of scalars for a scalar tag, otherwise a list of per-sample
// lists.
func (v *Variant) Format(tag string) (script.Value, error) {
	if err := v.borrow(); err != nil {
		return nil, err
	}
	typ, card, err := v.hdr.FormatType(tag)
	if err != nil {
		return nil, err
	}
	out := make(script.List, 0, len(v.hdr.Samples()))
	for _, name := range v.hdr.Samples() {
		raw, ok := v.rec.SampleField(name, tag)
		if !ok {
			out = append(out, script.Null{})
			continue
		}
		vals, err := parseTyped(raw, typ)
		if err != nil {
			return nil, fmt.Errorf("FORMAT %s, sample %s: %w", tag, name, err)
		}
		if card.IsScalar() && len(vals) == 1 {
			out = append(out, vals[0])
		} else {
			out = append(out, vals)
		}
	}
	return out, nil
}

// Sample returns every declared FORMAT tag's value for one sample. The
// genotype tag is decoded: GT becomes the list of allele indices and a
// parallel phase list of booleans is added.
func (v *Variant) Sample(name string) (script.Map, error) {
	if err := v.borrow(); err != nil {
		return nil, err
	}
	if _, err := v.hdr.SampleIndex(name); err != nil {
		return nil, err
	}
	out := make(script.Map)
	for _, tag := range v.hdr.FormatTags() {
		raw, ok := v.rec.SampleField(name, tag)
		if !ok {
			out[tag] = script.Null{}
			continue
		}
		if tag == "GT" {
			call, err := gt.ParseCall(raw)
			if err != nil {
				return nil, fmt.Errorf("sample %s: %w", name, err)
			}
			alleles := make(script.List, len(call))
			phase := make(script.List, len(call))
			for i, a := range call {
				if a.Index == gt.Missing {
					alleles[i] = script.Null{}
				} else {
					alleles[i] = script.Int(a.Index)
				}
				phase[i] = script.Bool(a.Phased)
			}
			out["GT"] = alleles
			out["phase"] = phase
			continue
		}
		typ, card, err := v.hdr.FormatType(tag)
		if err != nil {
			return nil, err
		}
		vals, err := parseTyped(raw, typ)
		if err != nil {
			return nil, fmt.Errorf("FORMAT %s, sample %s: %w", tag, name, err)
		}
		if card.IsScalar() && len(vals) == 1 {
			out[tag] = vals[0]
		} else {
			out[tag] = vals
		}
	}
	return out, nil
}

// Snapshot projects the whole record into plain guest values: every
// registered field at the top level, the same fields again under "variant"
// together with the record's INFO tags under "variant.info", and each
// sample's decoded FORMAT map under "samples". Declarative engines evaluate
// against this data instead of calling back into the binding.
func (v *Variant) Snapshot() (script.Map, error) {
	if err := v.borrow(); err != nil {
		return nil, err
	}
	top := make(script.Map, len(fields)+2)
	rec := make(script.Map, len(fields)+1)
	for name, f := range fields {
		val, err := f.get(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		top[name] = val
		rec[name] = val
	}
	info := make(script.Map)
	for _, tag := range v.rec.InfoKeys() {
		val, err := v.Info(tag, 0)
		if err != nil {
			if vcf.IsUnknownTag(err) {
				continue
			}
			return nil, err
		}
		info[tag] = val
	}
	rec["info"] = info
	top["variant"] = rec

	samples := make(script.Map)
	for _, name := range v.hdr.Samples() {
		m, err := v.Sample(name)
		if err != nil {
			return nil, err
		}
		samples[name] = m
	}
	top["samples"] = samples
	return top, nil
}

// Genotypes returns the decoded call view for all samples. Built once per
// binding; the view itself is lock-protected because guest code may keep the
// handle after the binding is released.
func (v *Variant) Genotypes() (*gt.View, error) {
	if v.view != nil {
		return v.view, nil
	}
	if err := v.borrow(); err != nil {
		return nil, err
	}
	calls, err := v.rec.GTCalls()
	if err != nil {
		return nil, err
	}
	v.view = gt.NewView(calls)
	return v.view, nil
}
