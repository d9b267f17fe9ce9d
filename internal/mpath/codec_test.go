package mpath

import (
	"errors"
	"reflect"
	"testing"
)

func TestEncodeLabel(t *testing.T) {
	tests := []struct {
		name    string
		n       uint64
		want    string
		wantErr error
	}{
		{name: "zero", n: 0, want: "0000"},
		{name: "one", n: 1, want: "0001"},
		{name: "first letter", n: 10, want: "000A"},
		{name: "carry", n: 36, want: "0010"},
		{name: "max", n: 36*36*36*36 - 1, want: "ZZZZ"},
		{name: "overflow", n: 36 * 36 * 36 * 36, wantErr: ErrLabelOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Default.EncodeLabel(tt.n)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("EncodeLabel(%d) error = %v, want %v", tt.n, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeLabel(%d) unexpected error: %v", tt.n, err)
			}
			if got != tt.want {
				t.Errorf("EncodeLabel(%d) = %q, want %q", tt.n, got, tt.want)
			}

			back, err := Default.DecodeLabel(got)
			if err != nil {
				t.Fatalf("DecodeLabel(%q) unexpected error: %v", got, err)
			}
			if back != tt.n {
				t.Errorf("DecodeLabel(%q) = %d, want %d", got, back, tt.n)
			}
		})
	}
}

func TestEncodeLabel_Hex(t *testing.T) {
	c := MustNew(2, Hex)
	got, err := c.EncodeLabel(255)
	if err != nil {
		t.Fatalf("EncodeLabel(255) unexpected error: %v", err)
	}
	if got != "FF" {
		t.Errorf("EncodeLabel(255) = %q, want %q", got, "FF")
	}
	if _, err := c.EncodeLabel(256); !errors.Is(err, ErrLabelOverflow) {
		t.Errorf("EncodeLabel(256) error = %v, want ErrLabelOverflow", err)
	}
}

func TestNew_RejectsUnsortedAlphabet(t *testing.T) {
	if _, err := New(4, "ba"); err == nil {
		t.Error("New with descending alphabet should fail")
	}
	if _, err := New(0, Base36); err == nil {
		t.Error("New with zero step should fail")
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    []string
		wantErr bool
	}{
		{name: "root", path: "0001", want: []string{"0001"}},
		{name: "depth three", path: "000100020003", want: []string{"0001", "0002", "0003"}},
		{name: "empty", path: "", wantErr: true},
		{name: "partial label", path: "000100", wantErr: true},
		{name: "lowercase symbol", path: "000a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Default.Split(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Fatalf("Split(%q) error = %v, want ErrInvalidPath", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Split(%q) unexpected error: %v", tt.path, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParent(t *testing.T) {
	got, err := Default.Parent("00010002")
	if err != nil {
		t.Fatalf("Parent unexpected error: %v", err)
	}
	if got != "0001" {
		t.Errorf("Parent(%q) = %q, want %q", "00010002", got, "0001")
	}

	if _, err := Default.Parent("0001"); !errors.Is(err, ErrRootPath) {
		t.Errorf("Parent of root error = %v, want ErrRootPath", err)
	}
	if got := Default.ParentOrRoot("0001"); got != "" {
		t.Errorf("ParentOrRoot of root = %q, want empty", got)
	}
}

func TestIsAncestor(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"0001", "00010001", true},
		{"0001", "000100010001", true},
		{"0001", "0001", false},
		{"00010001", "0001", false},
		{"0001", "00020001", false},
	}

	for _, tt := range tests {
		if got := IsAncestor(tt.a, tt.b); got != tt.want {
			t.Errorf("IsAncestor(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCommonPrefixDepth(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"0001", "0002", 0},
		{"00010002", "00010003", 1},
		{"000100020003", "00010002", 2},
		{"00010002", "00010002", 2},
		{"", "0001", 0},
	}

	for _, tt := range tests {
		if got := Default.CommonPrefixDepth(tt.a, tt.b); got != tt.want {
			t.Errorf("CommonPrefixDepth(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLexicographicOrderMatchesNumeric(t *testing.T) {
	prev := ""
	for _, n := range []uint64{1, 9, 10, 35, 36, 100, 1295, 1296} {
		label, err := Default.EncodeLabel(n)
		if err != nil {
			t.Fatalf("EncodeLabel(%d) unexpected error: %v", n, err)
		}
		if label <= prev {
			t.Errorf("label %q for %d does not sort after %q", label, n, prev)
		}
		prev = label
	}
}

func TestLineage(t *testing.T) {
	got := Default.Lineage("000100020003")
	want := []string{"0001", "00010002", "000100020003"}
	if len(got) != len(want) {
		t.Fatalf("Lineage() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Lineage()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if got := Default.Lineage(""); len(got) != 0 {
		t.Errorf("Lineage(\"\") = %v, want empty", got)
	}
}
