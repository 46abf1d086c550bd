package models

// Custom field kinds. Issue fields attach to issues, project fields hold
// per-project configuration such as the backtrace filter.
const (
	CustomFieldKindIssue   = "issue"
	CustomFieldKindProject = "project"
)

// Custom field value formats.
const (
	FieldFormatString = "string"
	FieldFormatInt    = "int"
	FieldFormatText   = "text"
)

// CustomField is a named, typed field definition. Fields are unique by
// (kind, name); issue fields additionally need project and tracker
// membership before values may be set on an issue.
type CustomField struct {
	ID           int64  `db:"id"            json:"id"`
	Kind         string `db:"kind"          json:"kind"`
	Name         string `db:"name"          json:"name"`
	FieldFormat  string `db:"field_format"  json:"field_format"`
	DefaultValue string `db:"default_value" json:"default_value"`
	Searchable   bool   `db:"searchable"    json:"searchable"`
	IsFilter     bool   `db:"is_filter"     json:"is_filter"`
}

// CustomValue is the value of a custom field on a single owner (an issue or
// a project). Values are stored as strings regardless of field format.
type CustomValue struct {
	ID            int64  `db:"id"              json:"id"`
	CustomFieldID int64  `db:"custom_field_id" json:"custom_field_id"`
	OwnerKind     string `db:"owner_kind"      json:"owner_kind"`
	OwnerID       int64  `db:"owner_id"        json:"owner_id"`
	Value         string `db:"value"           json:"value"`
}
