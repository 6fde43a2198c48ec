package nova

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Envelope is the JSON shape the legacy admin API wraps every response in.
// List endpoints populate Resources and NextPageURL; detail endpoints
// populate Resource.
type Envelope struct {
	Resources   []Resource `json:"resources"`
	Resource    *Resource  `json:"resource"`
	NextPageURL string     `json:"next_page_url"`
}

// Field is a single attribute from a legacy resource's field array.
// BelongsToID is set for fields that reference a related entity.
type Field struct {
	Attribute   string
	Value       interface{}
	BelongsToID *int64
}

// Resource is a legacy record. The legacy API represents attributes as a
// scannable array of field objects; Resource parses that array once into a
// keyed lookup so callers never re-scan it.
type Resource struct {
	ID     int64
	fields map[string]Field
}

type rawField struct {
	Attribute   string          `json:"attribute"`
	Value       json.RawMessage `json:"value"`
	BelongsToID json.RawMessage `json:"belongsToId"`
}

type rawResource struct {
	ID     json.RawMessage `json:"id"`
	Fields []rawField      `json:"fields"`
}

// UnmarshalJSON parses the legacy field-array envelope into the typed lookup.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var raw rawResource
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, ok := parseResourceID(raw.ID)
	if !ok {
		return fmt.Errorf("resource is missing an id")
	}
	r.ID = id

	r.fields = make(map[string]Field, len(raw.Fields))
	for _, f := range raw.Fields {
		attribute := strings.TrimSpace(f.Attribute)
		if attribute == "" {
			continue
		}
		field := Field{Attribute: attribute, Value: decodeScalar(f.Value)}
		if belongsTo, ok := parseIntValue(f.BelongsToID); ok {
			field.BelongsToID = &belongsTo
		}
		r.fields[attribute] = field
	}

	return nil
}

// Has reports whether the resource carries the given attribute.
func (r *Resource) Has(attribute string) bool {
	_, ok := r.fields[attribute]
	return ok
}

// String returns the attribute's value as a trimmed string, or "" when the
// attribute is absent or null.
func (r *Resource) String(attribute string) string {
	field, ok := r.fields[attribute]
	if !ok || field.Value == nil {
		return ""
	}
	switch v := field.Value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// Int returns the attribute's value as an integer.
func (r *Resource) Int(attribute string) (int64, bool) {
	field, ok := r.fields[attribute]
	if !ok || field.Value == nil {
		return 0, false
	}
	switch v := field.Value.(type) {
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// BelongsTo returns the related-entity id carried by a belongs-to field.
func (r *Resource) BelongsTo(attribute string) (int64, bool) {
	field, ok := r.fields[attribute]
	if !ok || field.BelongsToID == nil {
		return 0, false
	}
	return *field.BelongsToID, true
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time parses the attribute's value as a timestamp. The legacy API is not
// consistent about formats, so several layouts are tried.
func (r *Resource) Time(attribute string) (time.Time, bool) {
	value := r.String(attribute)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseResourceID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	// Detail endpoints use {"id": {"value": 123}}, some list projections
	// flatten it to a bare number.
	var wrapped struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Value) > 0 {
		return parseIntValue(wrapped.Value)
	}
	return parseIntValue(raw)
}

func parseIntValue(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if parsed, err := asNumber.Int64(); err == nil {
			return parsed, true
		}
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(asString), 10, 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func decodeScalar(raw json.RawMessage) interface{} {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return strings.Trim(string(raw), `"`)
	}
	return value
}
