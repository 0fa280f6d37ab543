// Package script defines the contract between the evaluation pipeline and an
// embedded guest scripting engine, together with the guest value model that
// crosses that boundary.
package script

import (
	"github.com/varlab/vexpress/internal/gt"
	"github.com/varlab/vexpress/internal/vcf"
)

// Binding presents one variant record to a guest engine for the duration of
// a single Invoke call. Engines must not let guest code retain it beyond
// that call; implementations invalidate themselves when the call returns.
type Binding interface {
	// Field resolves a registered field name (chrom, pos, qual, ...),
	// failing with FieldNotFound for unknown names.
	Field(name string) (Value, error)

	// SetField writes a registered mutable field.
	SetField(name string, v Value) error

	// Info resolves an INFO tag through the header type cache. index is
	// 1-based; 0 means no index was given.
	Info(tag string, index int) (Value, error)

	// Format resolves a FORMAT tag across all samples.
	Format(tag string) (Value, error)

	// Sample returns every declared FORMAT tag's value for one sample,
	// with the genotype decoded into allele indices plus a phase list.
	Sample(name string) (Map, error)

	// Genotypes returns a shared view over all samples' decoded calls.
	// The view may legitimately outlive the binding.
	Genotypes() (*gt.View, error)

	// Snapshot eagerly projects the whole record into plain guest values,
	// for declarative engines that evaluate against data rather than
	// calling back into the binding.
	Snapshot() (Map, error)
}

// Compiled is an engine-owned handle to one compiled expression or template.
type Compiled interface {
	// Source returns the original expression text, for error reporting.
	Source() string
}

// Engine hosts a guest scripting language. Compile once, invoke per record.
// Engines are single-threaded; the pipeline never invokes concurrently.
type Engine interface {
	// Compile compiles a boolean/value expression.
	Compile(src string) (Compiled, error)

	// CompileTemplate compiles a text template. Engines decide their own
	// interpolation syntax; the result of invoking it must coerce to a
	// string.
	CompileTemplate(src string) (Compiled, error)

	// LoadLibrary runs a library script once; its definitions stay
	// visible to every later expression and template. name is used in
	// errors.
	LoadLibrary(name, src string) error

	// RunPrelude runs a script once, before the record loop, with the
	// header bound and mutable.
	RunPrelude(name, src string, hdr *vcf.Header) error

	// Invoke evaluates a compiled expression with b in scope and returns
	// the guest result translated into the shared value model.
	Invoke(c Compiled, b Binding) (Value, error)

	// Close releases the interpreter.
	Close() error
}
