// Package luascript hosts guest expressions on a Lua interpreter
// (gopher-lua). It is the primary engine: filter expressions, set
// expressions, templates, preludes, and library scripts all run here.
package luascript

import (
	"fmt"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/varlab/vexpress/internal/bind"
	"github.com/varlab/vexpress/internal/script"
	"github.com/varlab/vexpress/internal/vcf"
)

// Options configure a new interpreter.
type Options struct {
	// Sandbox restricts the interpreter to base, table, string, and math
	// libraries; no filesystem or OS access.
	Sandbox bool
}

// Engine is the Lua implementation of script.Engine. Single-threaded: the
// pipeline binds one record, invokes, and releases before the next record.
type Engine struct {
	ls  *lua.LState
	env *lua.LTable

	variantMT *lua.LTable
	headerMT  *lua.LTable

	// current is the binding of the record under evaluation; nil between
	// Invoke calls so stale guest references fail instead of leaking.
	current script.Binding
	curUD   *lua.LUserData
	hdrUD   *lua.LUserData
}

var _ script.Engine = (*Engine)(nil)

// stdLibs are the libraries opened in sandbox mode. Everything touching the
// filesystem or the OS stays closed.
var stdLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.LoadLibName, lua.OpenPackage},
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// New creates an interpreter with the embedded prelude loaded.
func New(opts Options) (*Engine, error) {
	e := &Engine{}
	if opts.Sandbox {
		e.ls = lua.NewState(lua.Options{SkipOpenLibs: true})
		for _, lib := range stdLibs {
			if err := e.ls.CallByParam(lua.P{
				Fn:      e.ls.NewFunction(lib.open),
				NRet:    0,
				Protect: true,
			}, lua.LString(lib.name)); err != nil {
				e.ls.Close()
				return nil, fmt.Errorf("open %s: %w", lib.name, err)
			}
		}
		for _, name := range []string{"dofile", "loadfile", "loadstring", "require"} {
			e.ls.SetGlobal(name, lua.LNil)
		}
	} else {
		e.ls = lua.NewState()
	}

	e.env = e.ls.NewTable()
	envMT := e.ls.NewTable()
	envMT.RawSetString("__index", e.ls.NewFunction(e.envIndex))
	envMT.RawSetString("__newindex", e.ls.NewFunction(e.envNewIndex))
	e.ls.SetMetatable(e.env, envMT)

	e.variantMT = e.ls.NewTable()
	e.variantMT.RawSetString("__index", e.ls.NewFunction(e.variantIndex))
	e.variantMT.RawSetString("__newindex", e.ls.NewFunction(e.variantNewIndex))

	e.headerMT = e.ls.NewTable()
	e.headerMT.RawSetString("__index", e.ls.NewFunction(e.headerIndex))
	e.headerMT.RawSetString("__newindex", e.ls.NewFunction(e.headerNewIndex))
	e.headerMT.RawSetString("__tostring", e.ls.NewFunction(e.headerString))

	e.ls.SetGlobal("info", e.ls.NewFunction(e.luaInfo))
	e.ls.SetGlobal("format", e.ls.NewFunction(e.luaFormat))
	e.ls.SetGlobal("sample", e.ls.NewFunction(e.luaSample))

	if err := e.ls.DoString(luaPrelude); err != nil {
		e.ls.Close()
		return nil, fmt.Errorf("prelude: %w", err)
	}
	return e, nil
}

// Close releases the interpreter.
func (e *Engine) Close() error {
	e.ls.Close()
	return nil
}

type compiled struct {
	fn  *lua.LFunction
	src string
}

func (c *compiled) Source() string { return c.src }

// Compile compiles an expression. A bare expression gets a "return " prefix
// so `variant.id == "rs1"` works without boilerplate; sources that already
// contain a return are compiled as-is.
func (e *Engine) Compile(src string) (script.Compiled, error) {
	code := src
	if !strings.Contains(code, "return ") {
		code = "return " + code
	}
	return e.load(code, src)
}

// CompileTemplate compiles a text template. `{expr}` segments interpolate;
// a template that already contains an explicit return is treated as a full
// expression instead.
func (e *Engine) CompileTemplate(src string) (script.Compiled, error) {
	code := src
	if !strings.Contains(code, "return ") {
		code = translateTemplate(src)
	}
	return e.load(code, src)
}

func (e *Engine) load(code, src string) (script.Compiled, error) {
	fn, err := e.ls.Load(strings.NewReader(code), src)
	if err != nil {
		return nil, &script.ExprError{Source: src, Err: err}
	}
	e.ls.SetFEnv(fn, e.env)
	return &compiled{fn: fn, src: src}, nil
}

// translateTemplate turns `{chrom}:{pos}` into a Lua expression
// concatenating literal segments with tostring'd subexpressions.
func translateTemplate(src string) string {
	var parts []string
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, strconv.Quote(lit.String()))
			lit.Reset()
		}
	}
	for i := 0; i < len(src); {
		if src[i] == '{' {
			end := strings.IndexByte(src[i:], '}')
			if end < 0 {
				lit.WriteString(src[i:])
				break
			}
			flush()
			parts = append(parts, "tostring("+src[i+1:i+end]+")")
			i += end + 1
			continue
		}
		lit.WriteByte(src[i])
		i++
	}
	flush()
	if len(parts) == 0 {
		return `return ""`
	}
	return "return " + strings.Join(parts, " .. ")
}

// LoadLibrary runs a library script once; its global definitions stay
// visible to every expression and template.
func (e *Engine) LoadLibrary(name, src string) error {
	fn, err := e.ls.Load(strings.NewReader(src), name)
	if err != nil {
		return &script.ExprError{Source: name, Err: err}
	}
	e.ls.SetFEnv(fn, e.env)
	if err := e.ls.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
		return &script.ExprError{Source: name, Err: err}
	}
	return nil
}

// RunPrelude runs a script once with `header` bound and mutable.
func (e *Engine) RunPrelude(name, src string, hdr *vcf.Header) error {
	fn, err := e.ls.Load(strings.NewReader(src), name)
	if err != nil {
		return &script.ExprError{Source: name, Err: err}
	}
	e.ls.SetFEnv(fn, e.env)

	ud := e.ls.NewUserData()
	ud.Value = hdr
	e.ls.SetMetatable(ud, e.headerMT)
	e.hdrUD = ud
	defer func() { e.hdrUD = nil }()

	if err := e.ls.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
		return &script.ExprError{Source: name, Err: err}
	}
	return nil
}

// Invoke evaluates a compiled expression with b in scope. The binding is
// reachable as `variant`, through the top-level field aliases, and through
// the info/format/sample functions, for exactly the duration of this call.
func (e *Engine) Invoke(c script.Compiled, b script.Binding) (script.Value, error) {
	lc, ok := c.(*compiled)
	if !ok {
		return nil, fmt.Errorf("expression was not compiled by this engine")
	}
	e.current = b
	e.curUD = nil
	defer func() { e.current = nil; e.curUD = nil }()

	if err := e.ls.CallByParam(lua.P{Fn: lc.fn, NRet: 1, Protect: true}); err != nil {
		return nil, &script.ExprError{Source: lc.src, Err: err}
	}
	ret := e.ls.Get(-1)
	e.ls.Pop(1)
	return fromLua(ret), nil
}

func (e *Engine) variantUD() *lua.LUserData {
	if e.curUD == nil {
		ud := e.ls.NewUserData()
		ud.Value = e.current
		e.ls.SetMetatable(ud, e.variantMT)
		e.curUD = ud
	}
	return e.curUD
}

// envIndex resolves a free name in an expression: the variant and header
// handles first, then real globals, then the binding's field registry.
// Unknown top-level names stay nil, the normal Lua behavior; unknown
// *variant* fields error via variantIndex.
func (e *Engine) envIndex(L *lua.LState) int {
	key := L.CheckString(2)
	switch key {
	case "variant":
		if e.current != nil {
			L.Push(e.variantUD())
			return 1
		}
	case "header":
		if e.hdrUD != nil {
			L.Push(e.hdrUD)
			return 1
		}
	}
	if gv := L.G.Global.RawGetString(key); gv != lua.LNil {
		L.Push(gv)
		return 1
	}
	if e.current != nil {
		val, err := e.current.Field(key)
		if err == nil {
			L.Push(toLua(e.ls, val))
			return 1
		}
		if !bind.IsFieldNotFound(err) {
			L.RaiseError("%s", err.Error())
		}
	}
	L.Push(lua.LNil)
	return 1
}

func (e *Engine) envNewIndex(L *lua.LState) int {
	key := L.CheckString(2)
	val := L.Get(3)
	if e.current != nil {
		err := e.current.SetField(key, fromLua(val))
		if err == nil {
			return 0
		}
		if !bind.IsFieldNotFound(err) {
			L.RaiseError("%s", err.Error())
		}
	}
	L.G.Global.RawSetString(key, val)
	return 0
}

func (e *Engine) variantIndex(L *lua.LState) int {
	ud := L.CheckUserData(1)
	key := L.CheckString(2)
	b, ok := ud.Value.(script.Binding)
	if !ok {
		L.RaiseError("not a variant")
	}
	switch key {
	case "info":
		L.Push(e.ls.NewFunction(e.luaInfo))
		return 1
	case "format":
		L.Push(e.ls.NewFunction(e.luaFormat))
		return 1
	case "sample":
		L.Push(e.ls.NewFunction(e.luaSample))
		return 1
	case "genotypes":
		L.Push(e.genotypesTable(L, b))
		return 1
	}
	val, err := b.Field(key)
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(toLua(e.ls, val))
	return 1
}

func (e *Engine) variantNewIndex(L *lua.LState) int {
	ud := L.CheckUserData(1)
	key := L.CheckString(2)
	b, ok := ud.Value.(script.Binding)
	if !ok {
		L.RaiseError("not a variant")
	}
	if err := b.SetField(key, fromLua(L.Get(3))); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// genotypesTable renders the decoded call view into a 1-based table of
// display strings.
func (e *Engine) genotypesTable(L *lua.LState, b script.Binding) *lua.LTable {
	view, err := b.Genotypes()
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	tbl := e.ls.NewTable()
	for i := 0; i < view.Len(); i++ {
		call, err := view.At(i)
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
		tbl.RawSetInt(i+1, lua.LString(call.String()))
	}
	return tbl
}

// callBinding returns the binding for a method or free-function call: the
// userdata receiver when called colon-style, the current binding otherwise.
func (e *Engine) callBinding(L *lua.LState) (script.Binding, int) {
	if ud, ok := L.Get(1).(*lua.LUserData); ok {
		if b, ok := ud.Value.(script.Binding); ok {
			return b, 2
		}
	}
	if e.current == nil {
		L.RaiseError("no variant in scope")
	}
	return e.current, 1
}

func (e *Engine) luaInfo(L *lua.LState) int {
	b, argn := e.callBinding(L)
	tag := L.CheckString(argn)
	index := 0
	if L.GetTop() >= argn+1 && L.Get(argn+1) != lua.LNil {
		index = L.CheckInt(argn + 1)
	}
	val, err := b.Info(tag, index)
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(toLua(e.ls, val))
	return 1
}

func (e *Engine) luaFormat(L *lua.LState) int {
	b, argn := e.callBinding(L)
	tag := L.CheckString(argn)
	val, err := b.Format(tag)
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(toLua(e.ls, val))
	return 1
}

func (e *Engine) luaSample(L *lua.LState) int {
	b, argn := e.callBinding(L)
	name := L.CheckString(argn)
	m, err := b.Sample(name)
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(toLua(e.ls, m))
	return 1
}

func (e *Engine) headerIndex(L *lua.LState) int {
	ud := L.CheckUserData(1)
	key := L.CheckString(2)
	hdr, ok := ud.Value.(*vcf.Header)
	if !ok {
		L.RaiseError("not a header")
	}
	switch key {
	case "samples":
		tbl := e.ls.NewTable()
		for i, name := range hdr.Samples() {
			tbl.RawSetInt(i+1, lua.LString(name))
		}
		L.Push(tbl)
		return 1
	case "add_info":
		L.Push(e.ls.NewFunction(e.headerAddInfo))
		return 1
	case "add_format":
		L.Push(e.ls.NewFunction(e.headerAddFormat))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

func (e *Engine) headerNewIndex(L *lua.LState) int {
	ud := L.CheckUserData(1)
	key := L.CheckString(2)
	hdr, ok := ud.Value.(*vcf.Header)
	if !ok {
		L.RaiseError("not a header")
	}
	if key != "samples" {
		L.RaiseError("header field %q cannot be assigned", key)
	}
	tbl := L.CheckTable(3)
	names := make([]string, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		names = append(names, lua.LVAsString(tbl.RawGetInt(i)))
	}
	if err := hdr.SubsetSamples(names); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (e *Engine) headerString(L *lua.LState) int {
	ud := L.CheckUserData(1)
	hdr, ok := ud.Value.(*vcf.Header)
	if !ok {
		L.RaiseError("not a header")
	}
	L.Push(lua.LString(hdr.Render()))
	return 1
}

func (e *Engine) headerAddInfo(L *lua.LState) int {
	e.headerAddTag(L, vcf.NamespaceInfo)
	return 0
}

func (e *Engine) headerAddFormat(L *lua.LState) int {
	e.headerAddTag(L, vcf.NamespaceFormat)
	return 0
}

func (e *Engine) headerAddTag(L *lua.LState, ns vcf.Namespace) {
	ud := L.CheckUserData(1)
	hdr, ok := ud.Value.(*vcf.Header)
	if !ok {
		L.RaiseError("not a header")
	}
	tbl := L.CheckTable(2)
	def, err := tagDefFromTable(tbl)
	if err != nil {
		L.RaiseError("add_%s: %s", strings.ToLower(string(ns)), err.Error())
	}
	switch ns {
	case vcf.NamespaceInfo:
		err = hdr.AddInfo(def)
	case vcf.NamespaceFormat:
		err = hdr.AddFormat(def)
	}
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}

func tagDefFromTable(tbl *lua.LTable) (vcf.TagDef, error) {
	field := func(key string) (string, error) {
		v := tbl.RawGetString(key)
		if v == lua.LNil {
			return "", fmt.Errorf("missing %s", key)
		}
		return lua.LVAsString(v), nil
	}
	id, err := field("ID")
	if err != nil {
		return vcf.TagDef{}, err
	}
	number, err := field("Number")
	if err != nil {
		return vcf.TagDef{}, err
	}
	typeName, err := field("Type")
	if err != nil {
		return vcf.TagDef{}, err
	}
	typ, err := vcf.ParseValueType(typeName)
	if err != nil {
		return vcf.TagDef{}, err
	}
	card, err := vcf.ParseCardinality(number)
	if err != nil {
		return vcf.TagDef{}, err
	}
	desc := lua.LVAsString(tbl.RawGetString("Description"))
	return vcf.TagDef{ID: id, Type: typ, Card: card, Description: desc}, nil
}
