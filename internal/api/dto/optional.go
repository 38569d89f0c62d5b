package dto

import "encoding/json"

// OptionalString distinguishes an absent JSON key from an explicit
// null. Set reports whether the key was present at all.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked when the key is present, so Set is
// always true here; a JSON null leaves Value nil.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON emits the wrapped value.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

// OptionalInt distinguishes an absent JSON key from an explicit null.
type OptionalInt struct {
	Set   bool
	Value *int
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}
