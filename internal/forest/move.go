package forest

import (
	"fmt"
	"strings"

	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	"docforest/internal/mpath"
)

// Level is the ordered set of children under one parent.
type Level struct {
	Parent   string   // "" for the root level
	Siblings []string // child paths in ascending order
	ChildSeq uint64   // largest label ever allocated under Parent
}

// Relabel re-paths the subtree rooted at From so that it is rooted at To.
type Relabel struct {
	From string
	To   string
}

// Apply rewrites path if it lies in the relabelled subtree.
func (r Relabel) Apply(path string) (string, bool) {
	if path == r.From || strings.HasPrefix(path, r.From) {
		return r.To + path[len(r.From):], true
	}
	return path, false
}

// Plan is the set of path rewrites that places a document at its target.
//
// Siblings are relabelled first, in order. The subject then moves from
// SubjectFrom (its path after the sibling relabels) to Path.
type Plan struct {
	NoOp        bool
	Path        string
	SubjectFrom string // "" when inserting a new document
	Relabels    []Relabel
	ChildSeq    uint64
}

// TargetParent resolves the parent path a document lands under and rejects
// moves that would create a cycle or turn a root into a nested sibling.
// subject is nil for inserts; reference is nil only for root inserts.
func TargetParent(codec *mpath.Codec, subject, reference *models.Document, pos models.Position) (string, error) {
	if !pos.Valid() {
		return "", &domain.ValidationError{Message: fmt.Sprintf("invalid position %d", int(pos))}
	}

	if reference == nil {
		if !pos.IsChild() {
			return "", &domain.ValidationError{Message: fmt.Sprintf("position %s requires a reference document", pos)}
		}
		return "", nil
	}

	var parent string
	if pos.IsChild() {
		parent = reference.Path
	} else {
		parent = codec.ParentOrRoot(reference.Path)
	}

	if subject == nil {
		return parent, nil
	}

	if parent != "" && (parent == subject.Path || mpath.IsAncestor(subject.Path, parent)) {
		return "", fmt.Errorf("move %s under %s: %w", subject.ID, reference.ID, domain.ErrCycle)
	}
	if !pos.IsChild() && subject.IsRoot() && !reference.IsRoot() {
		return "", fmt.Errorf("root %s cannot become a sibling of %s: %w", subject.ID, reference.ID, domain.ErrInvalidTarget)
	}

	return parent, nil
}

// PlanPlacement computes the rewrites that put subject (or a new document when
// subject is "") at pos relative to reference within level.
//
// Appends allocate above the parent's high-water mark. Inserting before an
// existing sibling gives the subject and every following sibling fresh labels
// above the mark, so a label is never handed out twice under one parent.
func PlanPlacement(codec *mpath.Codec, subject, reference string, pos models.Position, level Level) (*Plan, error) {
	if subject != "" && subject == reference && (pos == models.PositionLeft || pos == models.PositionRight) {
		return &Plan{NoOp: true, Path: subject, SubjectFrom: subject, ChildSeq: level.ChildSeq}, nil
	}

	current := -1
	siblings := make([]string, 0, len(level.Siblings))
	for i, s := range level.Siblings {
		if s == subject {
			current = i
			continue
		}
		siblings = append(siblings, s)
	}

	idx, err := insertIndex(siblings, reference, pos)
	if err != nil {
		return nil, err
	}

	if current >= 0 && current == idx {
		return &Plan{NoOp: true, Path: subject, SubjectFrom: subject, ChildSeq: level.ChildSeq}, nil
	}

	seq := level.ChildSeq
	for _, s := range level.Siblings {
		n, err := codec.DecodeLabel(codec.LastLabel(s))
		if err != nil {
			return nil, err
		}
		seq = max(seq, n)
	}

	plan := &Plan{SubjectFrom: subject}
	seq++
	if plan.Path, err = codec.Child(level.Parent, seq); err != nil {
		return nil, err
	}
	for _, s := range siblings[idx:] {
		seq++
		to, err := codec.Child(level.Parent, seq)
		if err != nil {
			return nil, err
		}
		r := Relabel{From: s, To: to}
		plan.Relabels = append(plan.Relabels, r)
		if moved, ok := r.Apply(plan.SubjectFrom); ok && subject != "" {
			plan.SubjectFrom = moved
		}
	}
	plan.ChildSeq = seq

	return plan, nil
}

func insertIndex(siblings []string, reference string, pos models.Position) (int, error) {
	switch pos {
	case models.PositionFirstChild, models.PositionFirstSibling:
		return 0, nil
	case models.PositionLastChild, models.PositionLastSibling:
		return len(siblings), nil
	case models.PositionLeft, models.PositionRight:
		for i, s := range siblings {
			if s == reference {
				if pos == models.PositionRight {
					return i + 1, nil
				}
				return i, nil
			}
		}
		return 0, fmt.Errorf("reference %s is not a sibling at target: %w", reference, domain.ErrNotFound)
	default:
		return 0, &domain.ValidationError{Message: fmt.Sprintf("invalid position %d", int(pos))}
	}
}
