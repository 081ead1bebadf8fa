// Package manifest loads command trees from declarative JSON documents.
//
// A manifest describes tree shape only: literal words, typed arguments,
// bounds and redirects. Behavior is supplied separately through Bindings,
// which map the symbolic names used in the manifest ("email.send",
// "perm.admin") to Go functions. This keeps the wire format inert: a
// manifest can be validated, diffed and shipped without executing
// anything.
package manifest

import (
	"encoding/json"
	"fmt"
)

// Manifest is the top-level document: a list of root commands.
type Manifest struct {
	Commands []NodeSpec `json:"commands"`
}

// NodeSpec describes one node of a command tree. Exactly one of Literal
// and Argument is set; the schema enforces the split.
type NodeSpec struct {
	Literal  WordList `json:"literal,omitempty"`
	Argument string   `json:"argument,omitempty"`
	Type     string   `json:"type,omitempty"`

	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`

	Run            string   `json:"run,omitempty"`
	Require        string   `json:"require,omitempty"`
	FailureMessage string   `json:"failure_message,omitempty"`
	Suggest        []string `json:"suggest,omitempty"`
	SuggestFn      string   `json:"suggest_fn,omitempty"`

	// Redirect addresses another literal node by its path of first
	// words, e.g. "email/send". A redirecting node carries no children.
	Redirect string `json:"redirect,omitempty"`

	Children []NodeSpec `json:"children,omitempty"`
}

// WordList accepts either a single JSON string or an array of strings.
type WordList []string

func (w *WordList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = WordList{s}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(data, &ss); err != nil {
		return fmt.Errorf("literal must be a string or an array of strings: %w", err)
	}
	*w = WordList(ss)
	return nil
}

func (w WordList) MarshalJSON() ([]byte, error) {
	if len(w) == 1 {
		return json.Marshal(w[0])
	}
	return json.Marshal([]string(w))
}
