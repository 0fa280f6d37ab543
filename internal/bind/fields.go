package bind

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/varlab/vexpress/internal/script"
	"github.com/varlab/vexpress/internal/vcf"
)

// fieldSpec pairs a getter with an optional setter. A nil setter marks the
// field read-only.
type fieldSpec struct {
	get func(*Variant) (script.Value, error)
	set func(*Variant, script.Value) error
}

// fields is the static registry of names the binding exposes. Lookups hit
// this table only; there is no dynamic fallthrough, so an unknown name is an
// immediate FieldNotFound.
var fields = map[string]fieldSpec{
	"chrom": {
		get: func(v *Variant) (script.Value, error) {
			return script.Str(v.rec.Chrom()), nil
		},
	},
	"pos": {
		get: func(v *Variant) (script.Value, error) {
			return script.Int(v.rec.Pos()), nil
		},
		set: func(v *Variant, val script.Value) error {
			n, err := script.AsInt(val)
			if err != nil {
				return err
			}
			v.rec.SetPos(n)
			return nil
		},
	},
	"start": {
		get: func(v *Variant) (script.Value, error) {
			return script.Int(v.rec.Pos()), nil
		},
	},
	"stop": {
		get: func(v *Variant) (script.Value, error) {
			return script.Int(v.rec.End()), nil
		},
	},
	"end": {
		get: func(v *Variant) (script.Value, error) {
			return script.Int(v.rec.End()), nil
		},
	},
	"qual": {
		get: func(v *Variant) (script.Value, error) {
			q, ok := v.rec.Qual()
			if !ok {
				return script.Null{}, nil
			}
			return script.Float(q), nil
		},
		set: func(v *Variant, val script.Value) error {
			f, err := script.AsFloat(val)
			if err != nil {
				return err
			}
			v.rec.SetQual(f)
			return nil
		},
	},
	"id": {
		get: func(v *Variant) (script.Value, error) {
			return script.Str(v.rec.ID()), nil
		},
		set: func(v *Variant, val script.Value) error {
			s, err := script.AsString(val)
			if err != nil {
				return err
			}
			v.rec.SetID(s)
			return nil
		},
	},
	"REF": {
		get: func(v *Variant) (script.Value, error) {
			return script.Str(v.rec.Ref()), nil
		},
		set: func(v *Variant, val script.Value) error {
			s, err := script.AsString(val)
			if err != nil {
				return err
			}
			v.rec.SetRef(s)
			return nil
		},
	},
	"ALT": {
		get: func(v *Variant) (script.Value, error) {
			alts := v.rec.Alt()
			if len(alts) == 0 {
				return script.List{script.Str(".")}, nil
			}
			out := make(script.List, len(alts))
			for i, a := range alts {
				out[i] = script.Str(a)
			}
			return out, nil
		},
		set: func(v *Variant, val script.Value) error {
			alts, err := stringList(val)
			if err != nil {
				return err
			}
			if len(alts) == 1 && alts[0] == "." {
				alts = nil
			}
			v.rec.SetAlt(alts)
			return nil
		},
	},
	"filters": {
		get: func(v *Variant) (script.Value, error) {
			names := v.rec.Filters()
			out := make(script.List, len(names))
			for i, n := range names {
				out[i] = script.Str(n)
			}
			return out, nil
		},
		set: func(v *Variant, val script.Value) error {
			names, err := stringList(val)
			if err != nil {
				return err
			}
			v.rec.SetFilters(names)
			return nil
		},
	},
	"FILTER": {
		get: func(v *Variant) (script.Value, error) {
			name, ok := v.rec.FirstFilter()
			if !ok {
				return script.Null{}, nil
			}
			return script.Str(name), nil
		},
		// assignment replaces the whole filter set with the one name
		set: func(v *Variant, val script.Value) error {
			name, err := script.AsString(val)
			if err != nil {
				return err
			}
			v.rec.SetFilters([]string{name})
			return nil
		},
	},
	"genotypes": {
		get: func(v *Variant) (script.Value, error) {
			calls, err := v.rec.GTCalls()
			if err != nil {
				return nil, err
			}
			out := make(script.List, len(calls))
			for i, c := range calls {
				out[i] = script.Str(c.String())
			}
			return out, nil
		},
	},
}

func stringList(val script.Value) ([]string, error) {
	list := script.AsList(val)
	out := make([]string, len(list))
	for i, e := range list {
		s, err := script.AsString(e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// parseTyped splits a raw comma-separated field value and converts each
// element to its declared type. "." elements become guest nil so indexed
// access stays aligned with the file's value positions.
func parseTyped(raw string, typ vcf.ValueType) (script.List, error) {
	parts := strings.Split(raw, ",")
	out := make(script.List, len(parts))
	for i, p := range parts {
		if p == "." {
			out[i] = script.Null{}
			continue
		}
		switch typ {
		case vcf.TypeInteger:
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad integer %q", p)
			}
			out[i] = script.Int(n)
		case vcf.TypeFloat:
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("bad float %q", p)
			}
			out[i] = script.Float(f)
		default:
			out[i] = script.Str(p)
		}
	}
	return out, nil
}
