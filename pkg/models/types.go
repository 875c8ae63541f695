package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var null = []byte("null")

// Ref is a reference to another document. The backend sends either the bare
// id or the populated document.
type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, null) {
		*r = Ref{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode ref: %w", err)
	}
	*r = Ref(p)
	return nil
}

// Label is the human readable part of the reference, falling back to the id.
func (r Ref) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// Tags is always a list, whether the backend stored a comma separated string
// or an array.
type Tags []string

func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, null) {
		*t = nil
		return nil
	}
	var raw []string
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.Split(s, ",")
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}

	out := make(Tags, 0, len(raw))
	for _, tag := range raw {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	*t = out
	return nil
}

// Image is a stored picture. Plain string entries become an Image with only a URL.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id,omitempty"`
}

func (i *Image) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, null) {
		*i = Image{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var url string
		if err := json.Unmarshal(data, &url); err != nil {
			return err
		}
		*i = Image{URL: url}
		return nil
	}
	type plain Image
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	*i = Image(p)
	return nil
}

// Images accepts a single image or a list of them.
type Images []Image

func (im *Images) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, null) {
		*im = nil
		return nil
	}
	if len(data) > 0 && data[0] != '[' {
		var one Image
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*im = Images{one}
		return nil
	}
	var list []Image
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*im = list
	return nil
}

// Flex is a string that tolerates numeric JSON values, as phone numbers are
// stored as numbers by parts of the backend.
type Flex string

func (f *Flex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, null):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Flex(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode flex string: %w", err)
		}
		*f = Flex(n.String())
	}
	return nil
}

func (f Flex) String() string { return string(f) }

// Timestamp is a time that decodes empty strings and null as the zero time.
type Timestamp struct {
	time.Time
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, null) || bytes.Equal(data, []byte(`""`)) {
		ts.Time = time.Time{}
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		// epoch milliseconds
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
		ts.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	return ts.Time.UnmarshalJSON(data)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return null, nil
	}
	return ts.Time.MarshalJSON()
}

// At builds a Timestamp, mostly for fixtures.
func At(t time.Time) Timestamp { return Timestamp{Time: t} }
