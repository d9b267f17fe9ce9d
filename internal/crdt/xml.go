package crdt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NodeKind distinguishes projected XML nodes.
type NodeKind int

const (
	FragmentNode NodeKind = iota
	ElementNode
	TextNode
)

// Attr is a name/value pair on an element, or a formatting mark on text.
type Attr struct {
	Key   string
	Value string
}

// Node is one node of the XML projection of a shared type.
type Node struct {
	Kind     NodeKind
	Tag      string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// XMLFragment projects the named root XML fragment. A fragment that was never
// written projects as an empty fragment.
func (d *Doc) XMLFragment(name string) *Node {
	root := &Node{Kind: FragmentNode}
	t, ok := d.roots[name]
	if !ok {
		return root
	}
	root.Children = projectChildren(t)
	return root
}

func projectChildren(t *ytype) []*Node {
	var out []*Node
	for it := t.start; it != nil; it = it.right {
		if it.deleted {
			continue
		}
		if ct, ok := it.content.(*contentType); ok {
			if n := projectType(ct.t); n != nil {
				out = append(out, n)
			}
		}
	}
	return out
}

func projectType(t *ytype) *Node {
	switch t.ref {
	case typeXMLElement, typeXMLHook:
		return &Node{Kind: ElementNode, Tag: t.name, Attrs: attributes(t), Children: projectChildren(t)}
	case typeXMLFragment:
		return &Node{Kind: FragmentNode, Children: projectChildren(t)}
	case typeXMLText, typeText:
		return projectText(t)
	default:
		return nil
	}
}

func attributes(t *ytype) []Attr {
	attrs := make([]Attr, 0, len(t.mapping))
	for key, it := range t.mapping {
		if it.deleted {
			continue
		}
		if v, ok := lastValue(it.content); ok {
			attrs = append(attrs, Attr{Key: key, Value: stringify(v)})
		}
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Key < attrs[j].Key })
	return attrs
}

func lastValue(c content) (any, bool) {
	switch c := c.(type) {
	case *contentAny:
		if len(c.values) > 0 {
			return c.values[len(c.values)-1], true
		}
	case *contentJSON:
		if len(c.values) > 0 {
			return c.values[len(c.values)-1], true
		}
	case *contentString:
		return c.String(), true
	case *contentEmbed:
		return c.value, true
	}
	return nil, false
}

// projectText concatenates the live string runs of a text type. Formatting
// marks become attributes of the text node, nested values flattened as
// "mark.key".
func projectText(t *ytype) *Node {
	var sb strings.Builder
	var attrs []Attr
	for it := t.start; it != nil; it = it.right {
		if it.deleted {
			continue
		}
		switch c := it.content.(type) {
		case *contentString:
			sb.WriteString(c.String())
		case *contentFormat:
			attrs = appendFlattened(attrs, c.key, c.value)
		case *contentEmbed:
			attrs = appendFlattened(attrs, "embed", c.value)
		}
	}
	return &Node{Kind: TextNode, Text: sb.String(), Attrs: attrs}
}

func appendFlattened(attrs []Attr, key string, v any) []Attr {
	switch v := v.(type) {
	case nil:
		return attrs
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			attrs = appendFlattened(attrs, key+"."+k, v[k])
		}
		return attrs
	default:
		return append(attrs, Attr{Key: key, Value: stringify(v)})
	}
}

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []byte:
		return string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// Walk visits n and its descendants depth-first, pre-order. It stops early
// when fn returns an error or ctx is cancelled between siblings.
func Walk(ctx context.Context, n *Node, fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := Walk(ctx, child, fn); err != nil {
			return err
		}
	}
	return nil
}

// String renders the node as XML. Attribute order is by name.
func (n *Node) String() string {
	var sb strings.Builder
	n.render(&sb)
	return sb.String()
}

func (n *Node) render(sb *strings.Builder) {
	switch n.Kind {
	case TextNode:
		sb.WriteString(escape(n.Text))
	case ElementNode:
		sb.WriteString("<" + n.Tag)
		for _, a := range n.Attrs {
			sb.WriteString(" " + a.Key + `="` + escape(a.Value) + `"`)
		}
		sb.WriteString(">")
		for _, c := range n.Children {
			c.render(sb)
		}
		sb.WriteString("</" + n.Tag + ">")
	default:
		for _, c := range n.Children {
			c.render(sb)
		}
	}
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string {
	return xmlEscaper.Replace(s)
}
