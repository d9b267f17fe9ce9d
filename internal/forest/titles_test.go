package forest

import "testing"

func strPtr(s string) *string { return &s }

func TestCanonicalTitle(t *testing.T) {
	tests := []struct {
		name  string
		input *string
		want  *string
	}{
		{name: "nil", input: nil, want: nil},
		{name: "empty", input: strPtr(""), want: nil},
		{name: "blank", input: strPtr("   "), want: nil},
		{name: "english placeholder", input: strPtr("Untitled document"), want: nil},
		{name: "german placeholder", input: strPtr("Unbenanntes Dokument"), want: nil},
		{name: "french placeholder", input: strPtr("Document sans titre"), want: nil},
		{name: "real title", input: strPtr("My document"), want: strPtr("My document")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalTitle(tt.input)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("CanonicalTitle() = %q, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("CanonicalTitle() = %v, want %q", got, *tt.want)
			}
		})
	}
}

func TestTitleMatches(t *testing.T) {
	tests := []struct {
		title *string
		query string
		want  bool
	}{
		{strPtr("Réunion d'équipe"), "reunion", true},
		{strPtr("Réunion d'équipe"), "ÉQUIPE", true},
		{strPtr("Budget"), "planning", false},
		{nil, "anything", false},
		{nil, "", true},
	}

	for _, tt := range tests {
		if got := TitleMatches(tt.title, tt.query); got != tt.want {
			t.Errorf("TitleMatches(%v, %q) = %v, want %v", tt.title, tt.query, got, tt.want)
		}
	}
}
