package vcf

import "fmt"

// Namespace distinguishes the two tag dictionaries a header declares.
type Namespace string

const (
	NamespaceInfo   Namespace = "INFO"
	NamespaceFormat Namespace = "FORMAT"
)

// ValueType is the declared type of a tag's values.
type ValueType uint8

const (
	TypeInteger ValueType = iota
	TypeFloat
	TypeString
	TypeFlag
)

func (t ValueType) String() string {
	switch t {
	case TypeInteger:
		return "Integer"
	case TypeFloat:
		return "Float"
	case TypeString:
		return "String"
	case TypeFlag:
		return "Flag"
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// ParseValueType maps a header Type= value to a ValueType. Character tags
// are treated as single-character strings.
func ParseValueType(s string) (ValueType, error) {
	switch s {
	case "Integer":
		return TypeInteger, nil
	case "Float":
		return TypeFloat, nil
	case "String", "Character":
		return TypeString, nil
	case "Flag":
		return TypeFlag, nil
	}
	return 0, fmt.Errorf("unknown value type %q", s)
}

// CardKind is the shape of a tag's declared cardinality.
type CardKind uint8

const (
	CardFixed        CardKind = iota // Number=<n>
	CardPerAllele                    // Number=A, one per alternate allele
	CardPerAlleleRef                 // Number=R, one per allele including REF
	CardPerGenotype                  // Number=G, one per possible genotype
	CardVariable                     // Number=.
)

// Cardinality is a tag's declared value count. N is meaningful only for
// CardFixed.
type Cardinality struct {
	Kind CardKind
	N    int
}

// Fixed returns a fixed-count cardinality.
func Fixed(n int) Cardinality { return Cardinality{Kind: CardFixed, N: n} }

// IsScalar reports whether the tag declares exactly one value per record
// (per sample, for FORMAT tags).
func (c Cardinality) IsScalar() bool { return c.Kind == CardFixed && c.N == 1 }

func (c Cardinality) String() string {
	switch c.Kind {
	case CardFixed:
		return fmt.Sprintf("%d", c.N)
	case CardPerAllele:
		return "A"
	case CardPerAlleleRef:
		return "R"
	case CardPerGenotype:
		return "G"
	case CardVariable:
		return "."
	}
	return "?"
}

// ParseCardinality maps a header Number= value to a Cardinality.
func ParseCardinality(s string) (Cardinality, error) {
	switch s {
	case "A":
		return Cardinality{Kind: CardPerAllele}, nil
	case "R":
		return Cardinality{Kind: CardPerAlleleRef}, nil
	case "G":
		return Cardinality{Kind: CardPerGenotype}, nil
	case ".":
		return Cardinality{Kind: CardVariable}, nil
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n < 0 {
		return Cardinality{}, fmt.Errorf("unknown cardinality %q", s)
	}
	return Fixed(n), nil
}

// TagDef is one declared INFO or FORMAT tag.
type TagDef struct {
	ID          string
	Type        ValueType
	Card        Cardinality
	Description string
}
