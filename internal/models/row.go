package models

// Row yields raw column values by logical field name.
type Row interface {
	Field(name string) (any, bool)
}

// PositionalRow addresses values by their index in Fields.
type PositionalRow struct {
	Fields []string
	Values []any
}

// Field implements Row
func (r PositionalRow) Field(name string) (any, bool) {
	for i, f := range r.Fields {
		if f == name {
			if i >= len(r.Values) {
				return nil, false
			}
			return r.Values[i], true
		}
	}
	return nil, false
}

// NamedRow addresses values by column name.
type NamedRow map[string]any

// Field implements Row
func (r NamedRow) Field(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}
