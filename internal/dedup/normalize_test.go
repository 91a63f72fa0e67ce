package dedup

import "testing"

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want string
	}{
		{
			name: "lowercases and collapses whitespace",
			text: "Dhaka   Flood\n\tUpdate",
			want: "dhaka flood update",
		},
		{
			name: "drops stop words",
			text: "The flood in the city and the river",
			want: "flood city river",
		},
		{
			name: "drops short tokens",
			text: "BD at 5 pm on TV",
			want: "",
		},
		{
			name: "keeps bengali text and bengali stop words go",
			text: "ঢাকায় বন্যা এবং যানজট",
			want: "ঢাকায় বন্যা যানজট",
		},
		{
			name: "strips special characters but keeps sentence punctuation",
			text: "Breaking: flood @Dhaka #news (video)",
			want: "breaking flood dhaka news video",
		},
		{
			name: "keeps sentence punctuation attached to tokens",
			text: "Flood warning issued... stay safe!",
			want: "flood warning issued... stay safe!",
		},
		{
			name: "empty input",
			text: "",
			want: "",
		},
		{
			name: "symbols only",
			text: "@#$%^&*",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeText(tc.text); got != tc.want {
				t.Fatalf("unexpected normalized text: %q (want %q)", got, tc.want)
			}
		})
	}
}

func TestNormalizeTextIdempotent(t *testing.T) {
	t.Parallel()

	samples := []string{
		"The Flood in Dhaka Kills Five People!",
		"ঢাকায় ভয়াবহ বন্যা, পাঁচজন নিহত",
		"Mixed বাংলা and English; with... punctuation?!",
		"   \t\n   ",
		"",
	}

	for _, sample := range samples {
		once := NormalizeText(sample)
		twice := NormalizeText(once)
		if once != twice {
			t.Fatalf("normalize not idempotent for %q: %q != %q", sample, once, twice)
		}
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	base := Fingerprint("Dhaka flood kills five", "Heavy rain flooded the old town.")

	same := Fingerprint("DHAKA   flood kills five", "Heavy rain flooded the old town.")
	if same != base {
		t.Fatalf("fingerprint changed under normalization-equivalent input: %q != %q", same, base)
	}

	different := Fingerprint("Dhaka flood kills five", "Completely unrelated body text here.")
	if different == base {
		t.Fatalf("fingerprint collision for different descriptions: %q", different)
	}

	if len(base) != 32 {
		t.Fatalf("unexpected fingerprint length: %d", len(base))
	}
}

func TestFingerprintSeparatesTitleAndDescription(t *testing.T) {
	t.Parallel()

	a := Fingerprint("flood city", "")
	b := Fingerprint("flood", "city")
	if a == b {
		t.Fatalf("title/description boundary lost: %q == %q", a, b)
	}
}
