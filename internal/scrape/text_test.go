package scrape

import "testing"

func TestCleanText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "collapses whitespace", in: "  Dhaka \t flood\n\nupdate ", want: "Dhaka flood update"},
		{name: "drops control characters", in: "breaking\x00news\x07today", want: "breaking news today"},
		{name: "keeps bengali", in: "ঢাকায়   বন্যা", want: "ঢাকায় বন্যা"},
		{name: "empty", in: "", want: ""},
	}

	for _, tc := range cases {
		if got := cleanText(tc.in); got != tc.want {
			t.Fatalf("%s: cleanText(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text untouched", in: "no markup here", want: "no markup here"},
		{name: "tags removed", in: "<p>Rivers are <b>rising</b>.</p>", want: "Rivers are rising."},
		{name: "entities decoded", in: "Cox&#39;s Bazar", want: "Cox's Bazar"},
	}

	for _, tc := range cases {
		if got := stripHTML(tc.in); got != tc.want {
			t.Fatalf("%s: stripHTML(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	if got := truncateText("short text", 100); got != "short text" {
		t.Fatalf("unexpected result: %q", got)
	}
	if got := truncateText("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("unexpected result: %q", got)
	}
	if got := truncateText("  padded  ", 0); got != "padded" {
		t.Fatalf("unexpected result: %q", got)
	}
}
