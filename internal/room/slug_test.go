package room

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Test Title 1", "test-title-1"},
		{"  Hello,  World!  ", "hello-world"},
		{"already-a-slug", "already-a-slug"},
		{"ALL CAPS", "all-caps"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNewSlugDistinctForSameTitle(t *testing.T) {
	a := NewSlug("Test Title")
	b := NewSlug("Test Title")
	if a == b {
		t.Fatalf("two generated slugs are identical: %q", a)
	}
}

func TestNewSlugUsesReservedNamespace(t *testing.T) {
	s := NewSlug("Test Title")
	if !IsReservedSlug(s) {
		t.Fatalf("generated slug %q does not match the reserved pattern", s)
	}
}

func TestIsReservedSlug(t *testing.T) {
	if !IsReservedSlug("my-room-id-0123abcdef45") {
		t.Error("expected reserved")
	}
	if IsReservedSlug("my-room") {
		t.Error("plain slug flagged as reserved")
	}
	if IsReservedSlug("ideas-and-more") {
		t.Error("slug containing 'id' flagged as reserved")
	}
}
