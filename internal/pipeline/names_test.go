package pipeline

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jiří", "Jiri"},
		{"Štěpán", "Stepan"},
		{"François", "Francois"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := RemoveDiacritics(tc.input); got != tc.want {
			t.Errorf("RemoveDiacritics(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jiří Novák", "jiri novak"},
		{"Anna-Marie", "anna marie"},
		{"  Mixed   Spaces ", "mixed spaces"},
		{"ŘEHOŘ", "rehor"},
	}
	for _, tc := range tests {
		if got := NormalizeName(tc.input); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
