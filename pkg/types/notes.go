package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Notes holds free-form recipe notes. Older files store notes as a single
// string, others as a list of strings; the shape read is the shape written.
type Notes struct {
	Text  string
	Items []string
	List  bool
}

// TextNotes returns string-shaped notes.
func TextNotes(s string) Notes {
	return Notes{Text: s}
}

// ListNotes returns list-shaped notes.
func ListNotes(items ...string) Notes {
	return Notes{Items: items, List: true}
}

// Empty reports whether there is nothing to display.
func (n Notes) Empty() bool {
	if n.List {
		for _, it := range n.Items {
			if strings.TrimSpace(it) != "" {
				return false
			}
		}
		return true
	}
	return strings.TrimSpace(n.Text) == ""
}

// Lines returns the notes as display lines: the list items, or the text
// split on newlines.
func (n Notes) Lines() []string {
	if n.List {
		return cloneStrings(n.Items)
	}
	if n.Text == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(n.Text, "\r\n", "\n"), "\n")
}

// String joins list notes with newlines.
func (n Notes) String() string {
	if n.List {
		return strings.Join(n.Items, "\n")
	}
	return n.Text
}

// Clone returns a deep copy.
func (n Notes) Clone() Notes {
	n.Items = cloneStrings(n.Items)
	return n
}

// MarshalJSON writes a JSON array for list notes and a string otherwise.
func (n Notes) MarshalJSON() ([]byte, error) {
	if n.List {
		items := n.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(n.Text)
}

// UnmarshalJSON accepts a string, an array of strings, or null.
func (n *Notes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = Notes{}
		return nil
	case len(data) > 0 && data[0] == '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("notes list: %w", err)
		}
		*n = Notes{Items: items, List: true}
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("notes: %w", err)
		}
		*n = Notes{Text: s}
		return nil
	}
}
