package query

// TermID is an opaque 64-bit identifier assigned by an external id manager.
// Each (TermID, Property) pair addresses at most one posting list.
type TermID uint64

// PropertyType is the declared type of an indexed property.
type PropertyType int

const (
	Integer PropertyType = iota
	Unsigned
	Float
	String
	Date
)

func (t PropertyType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Unsigned:
		return "unsigned"
	case Float:
		return "float"
	case String:
		return "string"
	case Date:
		return "date"
	default:
		return "unknown"
	}
}

// Property describes a named, typed field in the schema.
type Property struct {
	Name       string
	Type       PropertyType
	IsIndexed  bool
	IsFilter   bool
	PropertyID uint32 // compact integer alias
}

// IsNumericFilter reports whether this property should be treated as a
// numeric filter column: indexed, filterable, and not a string type.
func (p Property) IsNumericFilter() bool {
	return p.IsIndexed && p.IsFilter && p.Type != String
}

// UnigramAlias returns the name of this property's finer-grained unigram
// alias, used by phrase iterators when available ("title" -> "title_unigram").
func (p Property) UnigramAlias() string {
	return p.Name + "_unigram"
}
