package vcf

// TypeCache memoizes tag type resolution for one namespace of one header.
//
// The first Resolve for a tag queries the header dictionary and caches the
// result; later calls are plain map hits. The cache is not safe for
// concurrent writers: header mutation happens only during single-threaded
// prelude execution, before the per-record loop starts, and each mutation
// invalidates just the affected tag.
type TypeCache struct {
	ns      Namespace
	lookup  func(tag string) (*TagDef, bool)
	entries map[string]typeEntry
}

type typeEntry struct {
	typ  ValueType
	card Cardinality
}

func newTypeCache(ns Namespace, lookup func(tag string) (*TagDef, bool)) *TypeCache {
	return &TypeCache{
		ns:      ns,
		lookup:  lookup,
		entries: make(map[string]typeEntry),
	}
}

// Resolve returns the declared type and cardinality of tag, or an
// UnknownTagError if the header never declared it.
func (c *TypeCache) Resolve(tag string) (ValueType, Cardinality, error) {
	if e, ok := c.entries[tag]; ok {
		return e.typ, e.card, nil
	}
	def, ok := c.lookup(tag)
	if !ok {
		return 0, Cardinality{}, &UnknownTagError{Namespace: c.ns, Tag: tag}
	}
	c.entries[tag] = typeEntry{typ: def.Type, card: def.Card}
	return def.Type, def.Card, nil
}

// Invalidate drops the cached entry for tag, if any. Called when a prelude
// redefines or adds the tag.
func (c *TypeCache) Invalidate(tag string) {
	delete(c.entries, tag)
}
