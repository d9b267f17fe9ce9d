// Package mpath encodes document positions as materialized paths.
//
// A path is the concatenation of fixed-width labels, one per level. Each label
// encodes a sibling index in the codec's alphabet, so lexicographic order of
// paths equals depth-first order of the tree.
package mpath

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultStepLen is the width of a single label.
	DefaultStepLen = 4

	// Base36 is the default alphabet. It must be in ascending byte order.
	Base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Hex is accepted for stores created with a hexadecimal alphabet.
	Hex = "0123456789ABCDEF"
)

var (
	ErrLabelOverflow = errors.New("label exceeds step capacity")
	ErrInvalidPath   = errors.New("invalid path")
	ErrRootPath      = errors.New("root path has no parent")
)

// Codec encodes and decodes labels of a fixed width.
type Codec struct {
	StepLen  int
	Alphabet string

	index [256]int
	max   uint64
}

// Default is the codec used when no step length is configured.
var Default = MustNew(DefaultStepLen, Base36)

// New validates the step length and alphabet and returns a codec.
func New(stepLen int, alphabet string) (*Codec, error) {
	if stepLen <= 0 {
		return nil, fmt.Errorf("step length must be positive, got %d", stepLen)
	}
	if len(alphabet) < 2 {
		return nil, fmt.Errorf("alphabet must have at least two symbols")
	}

	c := &Codec{StepLen: stepLen, Alphabet: alphabet}
	for i := range c.index {
		c.index[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		if i > 0 && alphabet[i] <= alphabet[i-1] {
			return nil, fmt.Errorf("alphabet must be strictly ascending at %q", alphabet[i])
		}
		c.index[alphabet[i]] = i
	}

	// capacity = base^stepLen - 1, saturating on overflow
	base := uint64(len(alphabet))
	capacity := uint64(1)
	for i := 0; i < stepLen; i++ {
		if capacity > (^uint64(0))/base {
			capacity = 0
			break
		}
		capacity *= base
	}
	c.max = capacity - 1
	return c, nil
}

// MustNew is New that panics on invalid arguments.
func MustNew(stepLen int, alphabet string) *Codec {
	c, err := New(stepLen, alphabet)
	if err != nil {
		panic(err)
	}
	return c
}

// MaxLabel is the largest value representable in one label.
func (c *Codec) MaxLabel() uint64 {
	return c.max
}

// EncodeLabel returns the zero-padded label for n.
func (c *Codec) EncodeLabel(n uint64) (string, error) {
	if n > c.max {
		return "", fmt.Errorf("%d > %d: %w", n, c.max, ErrLabelOverflow)
	}

	base := uint64(len(c.Alphabet))
	buf := make([]byte, c.StepLen)
	for i := c.StepLen - 1; i >= 0; i-- {
		buf[i] = c.Alphabet[n%base]
		n /= base
	}
	return string(buf), nil
}

// DecodeLabel is the inverse of EncodeLabel.
func (c *Codec) DecodeLabel(label string) (uint64, error) {
	if len(label) != c.StepLen {
		return 0, fmt.Errorf("label %q has width %d, want %d: %w", label, len(label), c.StepLen, ErrInvalidPath)
	}

	base := uint64(len(c.Alphabet))
	var n uint64
	for i := 0; i < len(label); i++ {
		d := c.index[label[i]]
		if d < 0 {
			return 0, fmt.Errorf("label %q has symbol %q outside alphabet: %w", label, label[i], ErrInvalidPath)
		}
		n = n*base + uint64(d)
	}
	return n, nil
}

// Validate reports whether path is a non-empty sequence of whole labels.
func (c *Codec) Validate(path string) error {
	if path == "" || len(path)%c.StepLen != 0 {
		return fmt.Errorf("path %q length %d is not a positive multiple of %d: %w", path, len(path), c.StepLen, ErrInvalidPath)
	}
	for i := 0; i < len(path); i++ {
		if c.index[path[i]] < 0 {
			return fmt.Errorf("path %q has symbol %q outside alphabet: %w", path, path[i], ErrInvalidPath)
		}
	}
	return nil
}

// Split partitions path into its labels.
func (c *Codec) Split(path string) ([]string, error) {
	if err := c.Validate(path); err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(path)/c.StepLen)
	for i := 0; i < len(path); i += c.StepLen {
		labels = append(labels, path[i:i+c.StepLen])
	}
	return labels, nil
}

// Depth returns the number of labels in path.
func (c *Codec) Depth(path string) (int, error) {
	if err := c.Validate(path); err != nil {
		return 0, err
	}
	return len(path) / c.StepLen, nil
}

// Parent strips the last label.
func (c *Codec) Parent(path string) (string, error) {
	if err := c.Validate(path); err != nil {
		return "", err
	}
	if len(path) == c.StepLen {
		return "", fmt.Errorf("%q: %w", path, ErrRootPath)
	}
	return path[:len(path)-c.StepLen], nil
}

// ParentOrRoot is Parent that returns "" for root paths.
func (c *Codec) ParentOrRoot(path string) string {
	if len(path) <= c.StepLen {
		return ""
	}
	return path[:len(path)-c.StepLen]
}

// Root returns the first label of path.
func (c *Codec) Root(path string) string {
	if len(path) < c.StepLen {
		return path
	}
	return path[:c.StepLen]
}

// LastLabel returns the label identifying path among its siblings.
func (c *Codec) LastLabel(path string) string {
	if len(path) < c.StepLen {
		return path
	}
	return path[len(path)-c.StepLen:]
}

// Child appends the label for n to parent. An empty parent yields a root path.
func (c *Codec) Child(parent string, n uint64) (string, error) {
	label, err := c.EncodeLabel(n)
	if err != nil {
		return "", err
	}
	return parent + label, nil
}

// Lineage returns the paths of every ancestor of path followed by path
// itself, root first.
func (c *Codec) Lineage(path string) []string {
	out := make([]string, 0, len(path)/c.StepLen)
	for end := c.StepLen; end <= len(path); end += c.StepLen {
		out = append(out, path[:end])
	}
	return out
}

// IsAncestor reports whether a is a strict prefix of b.
func IsAncestor(a, b string) bool {
	return len(a) < len(b) && strings.HasPrefix(b, a)
}

// CommonPrefixDepth returns the number of leading labels a and b share.
func (c *Codec) CommonPrefixDepth(a, b string) int {
	n := min(len(a), len(b)) / c.StepLen
	for i := 0; i < n; i++ {
		lo, hi := i*c.StepLen, (i+1)*c.StepLen
		if a[lo:hi] != b[lo:hi] {
			return i
		}
	}
	return n
}
