package docsystem

// TreeNode is a document with its nested children.
type TreeNode struct {
	Document
	Children []*TreeNode `json:"children"`
}

// Flatten returns the documents of the tree in depth-first order.
func (n *TreeNode) Flatten() []Document {
	if n == nil {
		return nil
	}
	out := []Document{n.Document}
	for _, child := range n.Children {
		out = append(out, child.Flatten()...)
	}
	return out
}
