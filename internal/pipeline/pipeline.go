// Package pipeline orchestrates per-record evaluation: bind the record, run
// set-expressions, run the filter chain with early exit, optionally render a
// template, write staged updates back, and emit the outcome.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/varlab/vexpress/internal/bind"
	"github.com/varlab/vexpress/internal/script"
	"github.com/varlab/vexpress/internal/vcf"
)

// Source is a named script, typically read from a file; the name shows up in
// error messages.
type Source struct {
	Name string
	Code string
}

// Options configure a pipeline. The header is shared with the reader and may
// be mutated by preludes before the first record is evaluated.
type Options struct {
	Engine    script.Engine
	Header    *vcf.Header
	Filters   []string
	Sets      []string // tag=expression
	Template  string
	Libraries []Source
	Preludes  []Source
}

// setExpr is one compiled NAME=expr update. The declared type is resolved
// once, at construction, after preludes have run.
type setExpr struct {
	tag string
	typ vcf.ValueType
	fn  script.Compiled
}

// staged is one computed update awaiting write-back.
type staged struct {
	tag string
	typ vcf.ValueType
	val script.Value
}

// Pipeline evaluates records one at a time. Single-threaded; one record is
// bound, evaluated, and emitted before the next is read.
type Pipeline struct {
	eng      script.Engine
	hdr      *vcf.Header
	filters  []script.Compiled
	sets     []setExpr
	template script.Compiled

	evaluated int
	passing   int
}

// New compiles every expression up front. Libraries load first, then
// preludes run with the header mutable, then set-expression target tags are
// resolved — so a tag a prelude adds is a valid target.
func New(opts Options) (*Pipeline, error) {
	p := &Pipeline{eng: opts.Engine, hdr: opts.Header}

	for _, lib := range opts.Libraries {
		if err := p.eng.LoadLibrary(lib.Name, lib.Code); err != nil {
			return nil, err
		}
	}
	for _, pre := range opts.Preludes {
		if err := p.eng.RunPrelude(pre.Name, pre.Code, p.hdr); err != nil {
			return nil, err
		}
	}

	for _, src := range opts.Filters {
		fn, err := p.eng.Compile(src)
		if err != nil {
			return nil, err
		}
		p.filters = append(p.filters, fn)
	}

	for _, s := range opts.Sets {
		tag, expr, ok := strings.Cut(s, "=")
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("set-expression %q must be tag=expression", s)}
		}
		typ, _, err := p.hdr.InfoType(tag)
		if err != nil {
			return nil, fmt.Errorf("set-expression target %q: %w (add it to the header in a prelude if needed)", tag, err)
		}
		fn, err := p.eng.Compile(expr)
		if err != nil {
			return nil, err
		}
		p.sets = append(p.sets, setExpr{tag: tag, typ: typ, fn: fn})
	}

	if opts.Template != "" {
		fn, err := p.eng.CompileTemplate(opts.Template)
		if err != nil {
			return nil, err
		}
		p.template = fn
	}
	return p, nil
}

// Evaluate runs one record through the pipeline. index is the 0-based record
// position, used in error context. Any guest error is fatal for the run.
func (p *Pipeline) Evaluate(rec *vcf.Record, index int) (Event, error) {
	p.evaluated++
	b := bind.New(rec, p.hdr)
	defer b.Release()

	// set-expressions run unconditionally, before filtering; results are
	// staged and applied only after the record passes.
	var updates []staged
	for _, se := range p.sets {
		val, err := p.eng.Invoke(se.fn, b)
		if err != nil {
			return Event{}, fmt.Errorf("record %d: %w", index, err)
		}
		coerced, err := coerce(val, se.typ)
		if err != nil {
			return Event{}, fmt.Errorf("record %d: set-expression %s: %w", index, se.tag, err)
		}
		updates = append(updates, staged{tag: se.tag, typ: se.typ, val: coerced})
	}

	passed := len(p.filters) == 0
	for _, fn := range p.filters {
		val, err := p.eng.Invoke(fn, b)
		if err != nil {
			return Event{}, fmt.Errorf("record %d: %w", index, err)
		}
		if script.Truthy(val) {
			passed = true
			break
		}
	}
	if !passed {
		return Event{Kind: KindSuppressed}, nil
	}
	p.passing++

	if p.template != nil {
		val, err := p.eng.Invoke(p.template, b)
		if err != nil {
			return Event{}, fmt.Errorf("record %d: %w", index, err)
		}
		text, err := script.AsString(val)
		if err != nil {
			return Event{}, fmt.Errorf("record %d: template: %w", index, err)
		}
		b.Release()
		p.writeBack(rec, updates)
		return Event{Kind: KindText, Text: text}, nil
	}

	// the borrow ends before write-back so the guest can no longer see the
	// record while it mutates
	b.Release()
	p.writeBack(rec, updates)
	return Event{Kind: KindRecord, Rec: rec}, nil
}

func (p *Pipeline) writeBack(rec *vcf.Record, updates []staged) {
	for _, u := range updates {
		switch u.typ {
		case vcf.TypeInteger:
			rec.SetInfoInts(u.tag, []int{int(u.val.(script.Int))})
		case vcf.TypeFloat:
			rec.SetInfoFloats(u.tag, []float64{float64(u.val.(script.Float))})
		case vcf.TypeString:
			rec.SetInfoStrings(u.tag, []string{string(u.val.(script.Str))})
		case vcf.TypeFlag:
			rec.SetInfoFlag(u.tag, bool(u.val.(script.Bool)))
		}
	}
}

// coerce narrows a guest result to a tag's declared type. Flags follow guest
// truthiness; the rest must convert cleanly.
func coerce(val script.Value, typ vcf.ValueType) (script.Value, error) {
	switch typ {
	case vcf.TypeInteger:
		n, err := script.AsInt(val)
		if err != nil {
			return nil, err
		}
		return script.Int(n), nil
	case vcf.TypeFloat:
		f, err := script.AsFloat(val)
		if err != nil {
			return nil, err
		}
		return script.Float(f), nil
	case vcf.TypeString:
		s, err := script.AsString(val)
		if err != nil {
			return nil, err
		}
		return script.Str(s), nil
	case vcf.TypeFlag:
		return script.Bool(script.Truthy(val)), nil
	}
	return nil, fmt.Errorf("unsupported target type %s", typ)
}

// Stats are the run counters, reported at end of run.
type Stats struct {
	VariantsEvaluated int `yaml:"variants_evaluated"`
	VariantsPassing   int `yaml:"variants_passing"`
}

// Stats returns the counters accumulated so far.
func (p *Pipeline) Stats() Stats {
	return Stats{VariantsEvaluated: p.evaluated, VariantsPassing: p.passing}
}

// Run drains the reader through the pipeline into the sink. The first error
// of any kind aborts the run.
func Run(r *vcf.Reader, p *Pipeline, s *Sink) error {
	for i := 0; ; i++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		ev, err := p.Evaluate(rec, i)
		if err != nil {
			return err
		}
		if err := s.Emit(ev); err != nil {
			return err
		}
	}
}
