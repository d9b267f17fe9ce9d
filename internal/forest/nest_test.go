package forest

import (
	"errors"
	"reflect"
	"testing"

	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
)

func docs(pairs ...string) []models.Document {
	out := make([]models.Document, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.Document{ID: pairs[i], Path: pairs[i+1], Depth: len(pairs[i+1]) / 4})
	}
	return out
}

func childIDs(n *models.TreeNode) []string {
	ids := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestNestTree(t *testing.T) {
	root, err := NestTree(docs("1", "0001", "2", "00010001", "3", "000100010001", "4", "00010002"))
	if err != nil {
		t.Fatalf("NestTree unexpected error: %v", err)
	}

	if root.ID != "1" {
		t.Fatalf("root = %s, want 1", root.ID)
	}
	if got := childIDs(root); !reflect.DeepEqual(got, []string{"2", "4"}) {
		t.Errorf("root children = %v, want [2 4]", got)
	}
	if got := childIDs(root.Children[0]); !reflect.DeepEqual(got, []string{"3"}) {
		t.Errorf("children of 2 = %v, want [3]", got)
	}
	if len(root.Children[1].Children) != 0 {
		t.Errorf("children of 4 = %v, want none", childIDs(root.Children[1]))
	}
}

func TestNestTree_MultipleRoots(t *testing.T) {
	_, err := NestTree(docs("1", "0001", "2", "0002"))
	if !errors.Is(err, domain.ErrMultipleRoots) {
		t.Errorf("NestTree error = %v, want ErrMultipleRoots", err)
	}
}

func TestNestTree_Empty(t *testing.T) {
	root, err := NestTree(nil)
	if err != nil || root != nil {
		t.Errorf("NestTree(nil) = %v, %v, want nil, nil", root, err)
	}
}

func TestNestTree_MissingIntermediate(t *testing.T) {
	// 00010001 is absent: its child attaches to the nearest ancestor
	root, err := NestTree(docs("1", "0001", "3", "000100010001", "4", "00010003"))
	if err != nil {
		t.Fatalf("NestTree unexpected error: %v", err)
	}
	if got := childIDs(root); !reflect.DeepEqual(got, []string{"3", "4"}) {
		t.Errorf("root children = %v, want [3 4]", got)
	}
}

func TestNestTree_FlattenIdentity(t *testing.T) {
	input := docs(
		"a", "0002",
		"b", "00020001",
		"c", "000200010001",
		"d", "000200010002",
		"e", "00020003",
		"f", "000200030001",
		"g", "0002000300010001",
	)

	root, err := NestTree(input)
	if err != nil {
		t.Fatalf("NestTree unexpected error: %v", err)
	}
	if got := root.Flatten(); !reflect.DeepEqual(got, input) {
		t.Errorf("Flatten(NestTree(x)) = %v, want %v", got, input)
	}
}
