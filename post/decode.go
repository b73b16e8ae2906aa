package post

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnmarshalJSON implements json.Unmarshaler. It accepts ids encoded either as
// strings or as numbers, so that hand-written documents with numeric ids
// still load.
func (p *Post) UnmarshalJSON(b []byte) error {
	type plain Post
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	id, err := decodeID(aux.ID)
	if err != nil {
		return err
	}
	*p = Post(aux.plain)
	p.ID = id
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id %s: %w", raw, err)
	}
	return n.String(), nil
}

// DecodeList parses a store document. An empty or blank document, or a JSON
// null, is an empty list.
func DecodeList(raw []byte) ([]Post, error) {
	raw = bytes.TrimSpace(raw)
	posts := []Post{}
	if len(raw) == 0 {
		return posts, nil
	}
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}

// EncodeList renders a store document: a JSON array indented with two spaces.
func EncodeList(posts []Post) ([]byte, error) {
	if posts == nil {
		posts = []Post{}
	}
	return json.MarshalIndent(posts, "", "  ")
}
