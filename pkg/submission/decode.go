package submission

import "encoding/json"

// Records come from a user-edited table, so any field may hold a value of the
// wrong type. Decoding never fails on content: a field of the wrong type
// decodes to its zero value, which later renders as a safe default.

type object map[string]json.RawMessage

func decodeObject(data []byte) object {
	var o object
	if err := json.Unmarshal(data, &o); err != nil {
		return nil
	}
	return o
}

func (o object) str(name string) string {
	var s string
	if raw, ok := o[name]; ok && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

func (o object) boolean(name string) bool {
	var b bool
	if raw, ok := o[name]; ok && json.Unmarshal(raw, &b) == nil {
		return b
	}
	return false
}

func (o object) number(name string) int {
	var n int
	if raw, ok := o[name]; ok && json.Unmarshal(raw, &n) == nil {
		return n
	}
	return 0
}

// UnmarshalJSON implements json.Unmarshaler. A record that is not an object
// decodes to the zero Submission.
func (s *Submission) UnmarshalJSON(data []byte) error {
	o := decodeObject(data)
	*s = Submission{
		ID:          o.str("id"),
		CreatedTime: o.str("createdTime"),
	}
	if raw, ok := o["fields"]; ok {
		return s.Fields.UnmarshalJSON(raw)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Non-string values decode to "".
func (f *Fields) UnmarshalJSON(data []byte) error {
	o := decodeObject(data)
	*f = Fields{
		Status:      o.str("Status"),
		CodeURL:     o.str("Code URL"),
		PlayableURL: o.str("Playable URL"),
		EventCode:   o.str("Event Code"),
		Title:       o.str("Title"),
		Description: o.str("Description"),
	}

	var items []json.RawMessage
	if raw, ok := o["Screenshot"]; ok && json.Unmarshal(raw, &items) == nil {
		for _, item := range items {
			var a Attachment
			a.UnmarshalJSON(item)
			f.Screenshot = append(f.Screenshot, a)
		}
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. An attachment without a string
// url is kept with an empty URL, so PhotoURL reports no usable screenshot.
func (a *Attachment) UnmarshalJSON(data []byte) error {
	o := decodeObject(data)
	*a = Attachment{
		ID:       o.str("id"),
		URL:      o.str("url"),
		Filename: o.str("filename"),
		Width:    o.number("width"),
		Height:   o.number("height"),
		Type:     o.str("type"),
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Without it the embedded
// Submission's decoder would drop the display fields.
func (e *Enriched) UnmarshalJSON(data []byte) error {
	if err := e.Submission.UnmarshalJSON(data); err != nil {
		return err
	}
	o := decodeObject(data)
	e.OptimizedPhotoURL = o.str("optimizedPhotoUrl")
	e.IsOptimized = o.boolean("isOptimized")
	return nil
}
