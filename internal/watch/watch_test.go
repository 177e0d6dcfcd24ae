package watch

import "testing"

func TestParseRoundtrip(t *testing.T) {
	cases := []string{
		"alice/albums",
		"alice/albums/jazz",
		"bob-42/singles",
	}
	for _, s := range cases {
		w, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := w.String(); got != s {
			t.Errorf("round trip of %q = %q", s, got)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"alice",
		"alice/albums/jazz/extra",
		"alice//jazz",
		" /albums",
	}
	for _, s := range cases {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) should fail", s)
		}
	}
}

func TestStaticRegistry(t *testing.T) {
	w1 := Watch{Owner: "alice", Category: "albums"}
	w2 := Watch{Owner: "bob", Category: "singles", Selector: "new"}
	other := Watch{Owner: "carol", Category: "albums"}

	r := NewStaticRegistry([]Watch{w1, w2})

	if !r.WatchingAnything() {
		t.Fatal("registry with two watches should be watching something")
	}
	if !r.WatchingAnyOf([]Watch{other, w2}) {
		t.Fatal("w2 is active, intersection expected")
	}
	if r.WatchingAnyOf([]Watch{other}) {
		t.Fatal("no intersection expected")
	}

	empty := NewStaticRegistry(nil)
	if empty.WatchingAnything() {
		t.Fatal("empty registry should watch nothing")
	}
	if empty.WatchingAnyOf([]Watch{w1}) {
		t.Fatal("empty registry intersects nothing")
	}
}
