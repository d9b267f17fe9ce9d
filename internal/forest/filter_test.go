package forest

import (
	"reflect"
	"strings"
	"testing"
)

func TestFilterRootPaths(t *testing.T) {
	tests := []struct {
		name        string
		input       []string
		skipSorting bool
		want        []string
	}{
		{
			name: "mixed forest",
			input: []string{
				"0001", "00010001", "000100010001", "000100010002", "000100020001", "000100020002",
				"0002", "00020001", "00020002",
				"00030001", "000300010001", "00030002",
				"000400010003", "0004000100030001", "000400010004",
			},
			want: []string{"0001", "0002", "00030001", "00030002", "000400010003", "000400010004"},
		},
		{
			name:  "unsorted input is sorted first",
			input: []string{"00010001", "0002", "0001"},
			want:  []string{"0001", "0002"},
		},
		{
			name:  "duplicates collapse",
			input: []string{"0003", "0003", "00030001"},
			want:  []string{"0003"},
		},
		{
			name:  "empty",
			input: nil,
			want:  []string{},
		},
		{
			name:        "skip sorting keeps caller order",
			input:       []string{"0002", "0001", "00010001"},
			skipSorting: true,
			want:        []string{"0002", "0001"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterRootPaths(tt.input, tt.skipSorting)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterRootPaths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterRootPaths_ResultIsAntichain(t *testing.T) {
	input := []string{"0001", "00010001", "0002", "00020003", "000200030001", "0005"}
	got := FilterRootPaths(input, false)

	for i, a := range got {
		for j, b := range got {
			if i != j && strings.HasPrefix(b, a) {
				t.Errorf("%q is a prefix of %q in result %v", a, b, got)
			}
		}
	}

	// every input path is covered by some result path
	for _, p := range input {
		covered := false
		for _, r := range got {
			if strings.HasPrefix(p, r) {
				covered = true
				break
			}
		}
		if !covered {
			t.Errorf("%q is not covered by %v", p, got)
		}
	}
}

func TestFilterRootPaths_DoesNotMutateInput(t *testing.T) {
	input := []string{"0002", "0001"}
	FilterRootPaths(input, false)
	if input[0] != "0002" {
		t.Errorf("input was reordered: %v", input)
	}
}
