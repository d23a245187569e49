// Package adf models the subset of the Atlassian Document Format that the
// chat feed needs: turning arbitrary tracker-controlled documents into plain
// text, and building the minimal document for a plain-text reply.
package adf

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	// DocVersion is the ADF schema version used for documents we build
	DocVersion = 1

	typeDoc       = "doc"
	typeParagraph = "paragraph"
	typeText      = "text"
)

// kind tags the wire shape a node was decoded from. Jira serves descriptions
// and comment bodies as nested objects, but the content is externally
// controlled, so every shape a JSON value can take must decode safely.
type kind int

const (
	// kindObject is the zero value so that hand-built Nodes behave like
	// decoded object nodes.
	kindObject kind = iota
	kindEmpty
	kindString
	kindList
	kindUnknown
)

// Node is one node of a structured document. A node on the wire is either a
// bare string, an ordered list of nodes, or an object with a type and
// optional child content. Anything else decodes as an unknown node that
// contributes nothing to the plain text.
type Node struct {
	Type    string `json:"type,omitempty"`
	Version int    `json:"version,omitempty"`
	Text    string `json:"text,omitempty"`
	Content []Node `json:"content,omitempty"`

	kind    kind
	literal string
	items   []Node
}

// nodeObject mirrors the object shape of Node for decoding without recursing
// into Node's own UnmarshalJSON.
type nodeObject struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Text    string `json:"text"`
	Content []Node `json:"content"`
}

// UnmarshalJSON decodes any JSON value into a Node. It never fails on
// unexpected shapes: numbers, booleans and other surprises become unknown
// nodes rather than errors.
func (n *Node) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = Node{kind: kindEmpty}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			*n = Node{kind: kindUnknown}
			return nil
		}
		*n = Node{kind: kindString, literal: s}
	case '[':
		var items []Node
		if err := json.Unmarshal(trimmed, &items); err != nil {
			*n = Node{kind: kindUnknown}
			return nil
		}
		*n = Node{kind: kindList, items: items}
	case '{':
		var obj nodeObject
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			*n = Node{kind: kindUnknown}
			return nil
		}
		*n = Node{
			kind:    kindObject,
			Type:    obj.Type,
			Version: obj.Version,
			Text:    obj.Text,
			Content: obj.Content,
		}
	default:
		*n = Node{kind: kindUnknown}
	}

	return nil
}

// MarshalJSON emits the object form. Only documents built via NewDocument are
// expected to be serialized; parsed string/list variants round-trip through
// their decoded content.
func (n Node) MarshalJSON() ([]byte, error) {
	switch n.kind {
	case kindString:
		return json.Marshal(n.literal)
	case kindList:
		return json.Marshal(n.items)
	}

	type object Node
	return json.Marshal(object(n))
}

// PlainText flattens the document into the concatenation, in document order,
// of every text node's content. It is total: a nil node or any malformed
// shape yields the empty string.
func (n *Node) PlainText() string {
	if n == nil {
		return ""
	}

	var b strings.Builder
	n.appendText(&b)
	return b.String()
}

func (n *Node) appendText(b *strings.Builder) {
	switch n.kind {
	case kindString:
		b.WriteString(n.literal)
	case kindList:
		for i := range n.items {
			n.items[i].appendText(b)
		}
	case kindObject:
		if n.Type == typeText {
			b.WriteString(n.Text)
			return
		}
		for i := range n.Content {
			n.Content[i].appendText(b)
		}
	}
}

// NewDocument wraps plain text into the minimal structured document: one
// paragraph holding one text node, under the fixed schema version.
func NewDocument(text string) Node {
	return Node{
		Type:    typeDoc,
		Version: DocVersion,
		Content: []Node{
			{
				Type: typeParagraph,
				Content: []Node{
					{Type: typeText, Text: text},
				},
			},
		},
	}
}
