package model

// FieldMetadata describes one field a document type needs. Fetched once per
// document type from the extraction service and cached; never mutated by the
// pipeline.
type FieldMetadata struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Category string `json:"category"`
	Required bool   `json:"required"`
	Optional bool   `json:"optional"`
	Type     string `json:"type"`
	HelpText string `json:"help_text,omitempty"`
}

// FieldGroup is the fields of one category, in fetch order.
type FieldGroup struct {
	Category string
	Fields   []FieldMetadata
}

// GroupFields groups fields by category preserving first-seen category order
// and the field order within each category.
func GroupFields(fields []FieldMetadata) []FieldGroup {
	idx := make(map[string]int, len(fields))
	var groups []FieldGroup
	for _, f := range fields {
		i, ok := idx[f.Category]
		if !ok {
			i = len(groups)
			idx[f.Category] = i
			groups = append(groups, FieldGroup{Category: f.Category})
		}
		groups[i].Fields = append(groups[i].Fields, f)
	}
	return groups
}
