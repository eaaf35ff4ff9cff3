// Package sexpr provides S-expression parsing for KiCad file syntax.
// KiCad boards, footprints and rule files all share the same parenthesized
// format, so the lexer and parser here are format-agnostic; the typed
// accessors on Node cover the value shapes those files use.
package sexpr

import (
	"fmt"
	"strconv"
)

// Node is one parsed S-expression. A leaf node carries a Value and has no
// children; a list node carries its elements in Children and an empty Value.
// For KiCad lists the first child is conventionally the keyword symbol.
type Node struct {
	Value    string  // Atom text (symbols and strings, quotes stripped)
	Quoted   bool    // True when the atom was a quoted string
	Children []*Node // List elements, nil for leaves
	Line     int     // 1-based source line, for error reporting
}

// IsLeaf reports whether the node is an atom rather than a list.
func (n *Node) IsLeaf() bool {
	return n.Children == nil
}

// Name returns the keyword of a list node (its first symbol child), or the
// empty string for leaves and empty lists.
func (n *Node) Name() string {
	if n.IsLeaf() || len(n.Children) == 0 {
		return ""
	}
	first := n.Children[0]
	if !first.IsLeaf() {
		return ""
	}
	return first.Value
}

// Child returns the first sub-list whose keyword matches name.
// Example: on (pad "1" (at 1.0 2.0)), Child("at") returns (at 1.0 2.0).
func (n *Node) Child(name string) (*Node, bool) {
	if n.IsLeaf() {
		return nil, false
	}
	for _, c := range n.Children {
		if !c.IsLeaf() && c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// ChildrenNamed returns every sub-list whose keyword matches name, in order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	if n.IsLeaf() {
		return out
	}
	for _, c := range n.Children {
		if !c.IsLeaf() && c.Name() == name {
			out = append(out, c)
		}
	}
	return out
}

// HasSymbol reports whether the list contains the bare symbol sym among its
// arguments, e.g. (zone ... keepout) -> HasSymbol("keepout").
func (n *Node) HasSymbol(sym string) bool {
	if n.IsLeaf() {
		return false
	}
	for _, c := range n.Children[min(1, len(n.Children)):] {
		if c.IsLeaf() && !c.Quoted && c.Value == sym {
			return true
		}
	}
	return false
}

// String returns the atom at index (0 is the keyword, 1 the first argument).
func (n *Node) String(index int) (string, error) {
	if n.IsLeaf() {
		return "", fmt.Errorf("line %d: expected list, got atom %q", n.Line, n.Value)
	}
	if index < 0 || index >= len(n.Children) {
		return "", fmt.Errorf("line %d: index %d out of bounds (length %d)", n.Line, index, len(n.Children))
	}
	c := n.Children[index]
	if !c.IsLeaf() {
		return "", fmt.Errorf("line %d: expected atom at index %d, got list", n.Line, index)
	}
	return c.Value, nil
}

// Float returns the atom at index parsed as a float64.
func (n *Node) Float(index int) (float64, error) {
	s, err := n.String(index)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: expected number at index %d, got %q", n.Line, index, s)
	}
	return v, nil
}

// Int returns the atom at index parsed as an int.
func (n *Node) Int(index int) (int, error) {
	s, err := n.String(index)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("line %d: expected integer at index %d, got %q", n.Line, index, s)
	}
	return v, nil
}

// FloatChild returns the first argument of the named sub-list as a float,
// or def when the sub-list is absent.
func (n *Node) FloatChild(name string, def float64) (float64, error) {
	c, ok := n.Child(name)
	if !ok {
		return def, nil
	}
	return c.Float(1)
}

// StringChild returns the first argument of the named sub-list, or def when
// the sub-list is absent.
func (n *Node) StringChild(name, def string) (string, error) {
	c, ok := n.Child(name)
	if !ok {
		return def, nil
	}
	return c.String(1)
}

// Args returns the list elements after the keyword.
func (n *Node) Args() []*Node {
	if n.IsLeaf() || len(n.Children) <= 1 {
		return nil
	}
	return n.Children[1:]
}
