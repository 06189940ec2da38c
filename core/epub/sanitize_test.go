package epub

import "testing"

func TestSanitizeBasename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Chapter One", "Chapter_One"},
		{"Ch 1!!", "Ch_1"},
		{"Ch 1??", "Ch_1"},
		{"  spaced  out  ", "spaced_out"},
		{"dash-ok_under", "dash-ok_under"},
		{"日本語のみ", ""},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeBasename(tt.in); got != tt.want {
			t.Errorf("SanitizeBasename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeBasenameCapsLength(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	if got := SanitizeBasename(long); len(got) > maxBasenameLen {
		t.Errorf("sanitized basename is %d chars, cap is %d", len(got), maxBasenameLen)
	}
}

func TestUniqueNamesSuffixesCollisions(t *testing.T) {
	u := NewUniqueNames()
	if got := u.Claim("ch"); got != "ch" {
		t.Fatalf("first claim = %q, want ch", got)
	}
	if got := u.Claim("ch"); got != "ch_2" {
		t.Fatalf("second claim = %q, want ch_2", got)
	}
	if got := u.Claim("ch"); got != "ch_3" {
		t.Fatalf("third claim = %q, want ch_3", got)
	}
}

func TestUniqueNamesCaseInsensitive(t *testing.T) {
	u := NewUniqueNames()
	u.Claim("Chapter")
	if got := u.Claim("chapter"); got != "chapter_2" {
		t.Fatalf("case-colliding claim = %q, want chapter_2", got)
	}
}

func TestManifestID(t *testing.T) {
	if got := manifestID("1st"); got != "x1st" {
		t.Errorf("manifestID(1st) = %q, want x1st", got)
	}
	if got := manifestID("ch"); got != "ch" {
		t.Errorf("manifestID(ch) = %q, want ch", got)
	}
	if got := manifestID(""); got != "item" {
		t.Errorf("manifestID of empty = %q, want item", got)
	}
}
