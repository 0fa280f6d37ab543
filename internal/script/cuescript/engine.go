// Package cuescript hosts guest expressions on CUE. Unlike the Lua engine it
// is purely declarative: each record is projected into a data snapshot and
// the expression is evaluated against that scope, so there is no prelude or
// library support and no field mutation from guest code.
package cuescript

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/parser"

	"github.com/varlab/vexpress/internal/script"
	"github.com/varlab/vexpress/internal/vcf"
)

// Engine is the CUE implementation of script.Engine.
type Engine struct {
	ctx *cue.Context
}

var _ script.Engine = (*Engine)(nil)

// New creates a CUE evaluation context.
func New() *Engine {
	return &Engine{ctx: cuecontext.New()}
}

// Close is a no-op; a CUE context holds no external resources.
func (e *Engine) Close() error { return nil }

type compiled struct {
	expr ast.Expr
	src  string
}

func (c *compiled) Source() string { return c.src }

// Compile parses an expression. References resolve at invoke time against
// the record snapshot, so `variant.info.DP > 5` and the top-level aliases
// (`pos`, `chrom`, ...) are both valid.
func (e *Engine) Compile(src string) (script.Compiled, error) {
	expr, err := parser.ParseExpr("expression", src)
	if err != nil {
		return nil, &script.ExprError{Source: src, Err: err}
	}
	return &compiled{expr: expr, src: src}, nil
}

// CompileTemplate compiles a text template. `{expr}` segments become CUE
// string interpolations; a template already containing `\(` is treated as a
// ready CUE string body.
func (e *Engine) CompileTemplate(src string) (script.Compiled, error) {
	body := src
	if !strings.Contains(body, `\(`) {
		body = translateTemplate(src)
	}
	expr, err := parser.ParseExpr("template", `"`+body+`"`)
	if err != nil {
		return nil, &script.ExprError{Source: src, Err: err}
	}
	return &compiled{expr: expr, src: src}, nil
}

// translateTemplate rewrites `{chrom}:{pos}` into the body of a CUE
// interpolated string, `\(chrom):\(pos)`. Literal segments are escaped.
func translateTemplate(src string) string {
	var sb strings.Builder
	for i := 0; i < len(src); {
		if src[i] == '{' {
			end := strings.IndexByte(src[i:], '}')
			if end >= 0 {
				sb.WriteString(`\(`)
				sb.WriteString(src[i+1 : i+end])
				sb.WriteString(`)`)
				i += end + 1
				continue
			}
		}
		switch src[i] {
		case '"', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(src[i])
		i++
	}
	return sb.String()
}

// LoadLibrary is not supported: there is no shared mutable scope to load
// into.
func (e *Engine) LoadLibrary(name, _ string) error {
	return fmt.Errorf("library scripts are not supported by the cue engine: %s", name)
}

// RunPrelude is not supported: CUE expressions cannot mutate the header.
func (e *Engine) RunPrelude(name, _ string, _ *vcf.Header) error {
	return fmt.Errorf("preludes are not supported by the cue engine: %s", name)
}

// Invoke evaluates the expression with the record snapshot as its scope.
func (e *Engine) Invoke(c script.Compiled, b script.Binding) (script.Value, error) {
	cc, ok := c.(*compiled)
	if !ok {
		return nil, fmt.Errorf("expression was not compiled by this engine")
	}
	snap, err := b.Snapshot()
	if err != nil {
		return nil, &script.ExprError{Source: cc.src, Err: err}
	}
	scope := e.ctx.Encode(toGo(snap))
	if err := scope.Err(); err != nil {
		return nil, &script.ExprError{Source: cc.src, Err: err}
	}
	v := e.ctx.BuildExpr(cc.expr, cue.Scope(scope), cue.InferBuiltins(true))
	if err := v.Err(); err != nil {
		return nil, &script.ExprError{Source: cc.src, Err: err}
	}
	out, err := fromCUE(v)
	if err != nil {
		return nil, &script.ExprError{Source: cc.src, Err: err}
	}
	return out, nil
}

// toGo lowers the guest value model to plain Go values for cue.Context.Encode.
func toGo(v script.Value) any {
	switch t := v.(type) {
	case nil, script.Null:
		return nil
	case script.Bool:
		return bool(t)
	case script.Int:
		return int64(t)
	case script.Float:
		return float64(t)
	case script.Str:
		return string(t)
	case script.List:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toGo(e)
		}
		return out
	case script.Map:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = toGo(e)
		}
		return out
	}
	return nil
}

// fromCUE lifts a concrete CUE value into the guest model.
func fromCUE(v cue.Value) (script.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return script.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return script.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, err
		}
		return script.Int(n), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return script.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return script.Str(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		var out script.List
		for iter.Next() {
			e, err := fromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		out := make(script.Map)
		for iter.Next() {
			e, err := fromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Selector().Unquoted()] = e
		}
		return out, nil
	}
	return nil, fmt.Errorf("expression did not evaluate to a concrete value (kind %v)", v.Kind())
}
