package docsystem

import (
	"fmt"
)

// Position places a document relative to a reference document.
type Position int

const (
	PositionFirstChild Position = iota + 1
	PositionLastChild
	PositionFirstSibling
	PositionLastSibling
	PositionLeft
	PositionRight
)

var positionNames = map[Position]string{
	PositionFirstChild:   "first-child",
	PositionLastChild:    "last-child",
	PositionFirstSibling: "first-sibling",
	PositionLastSibling:  "last-sibling",
	PositionLeft:         "left",
	PositionRight:        "right",
}

// ParsePosition converts a wire value into a Position.
func ParsePosition(s string) (Position, error) {
	for p, name := range positionNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown position %q", s)
}

func (p Position) String() string {
	if name, ok := positionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// Valid reports whether p is one of the declared positions.
func (p Position) Valid() bool {
	_, ok := positionNames[p]
	return ok
}

// IsChild reports whether p makes the subject a child of the reference.
func (p Position) IsChild() bool {
	return p == PositionFirstChild || p == PositionLastChild
}

// MarshalText implements encoding.TextMarshaler.
func (p Position) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid position %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(text []byte) error {
	parsed, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
