package forest

import (
	"fmt"
	"strings"

	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
)

// NestTree builds a single rooted tree from documents sorted by path.
// A document whose parent is missing attaches to its nearest present ancestor.
// Returns nil for empty input and ErrMultipleRoots when the documents do not
// descend from the first one.
func NestTree(documents []models.Document) (*models.TreeNode, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	var root *models.TreeNode
	stack := make([]*models.TreeNode, 0, 8)

	for _, doc := range documents {
		for len(stack) > 0 && !strings.HasPrefix(doc.Path, stack[len(stack)-1].Path) {
			stack = stack[:len(stack)-1]
		}

		node := &models.TreeNode{Document: doc, Children: []*models.TreeNode{}}
		if len(stack) == 0 {
			if root != nil {
				return nil, fmt.Errorf("%s is not under %s: %w", doc.Path, root.Path, domain.ErrMultipleRoots)
			}
			root = node
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, node)
	}

	return root, nil
}
