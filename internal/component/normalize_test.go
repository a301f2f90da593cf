package component

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already normalized", input: "foo-bar", want: "foo-bar"},
		{name: "uppercase", input: "Foo-Bar", want: "foo-bar"},
		{name: "spaces become hyphens", input: "  user   card ", want: "user-card"},
		{name: "underscores become hyphens", input: "user_card", want: "user-card"},
		{name: "empty string", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidName(t *testing.T) {
	valid := []string{"foo-bar", "x-1", "user-profile-card"}
	invalid := []string{"foobar", "-foo", "foo-", "1-foo", "Foo-bar", "foo--bar", "foo/bar", "foo-docs", "foo-docs-v2"}

	for _, n := range valid {
		if !ValidName(n) {
			t.Errorf("ValidName(%q) = false, want true", n)
		}
	}
	for _, n := range invalid {
		if ValidName(n) {
			t.Errorf("ValidName(%q) = true, want false", n)
		}
	}
}

func TestNameTokens(t *testing.T) {
	got := NameTokens("user-profile-card")
	if len(got) != 3 || got[0] != "user" || got[2] != "card" {
		t.Errorf("NameTokens = %v", got)
	}
}

func TestKeys(t *testing.T) {
	if got := AliasKey("foo-bar"); got != "foo-bar" {
		t.Errorf("AliasKey = %q", got)
	}
	if got := VersionKey("foo-bar", 3, 1700000000000000000); got != "foo-bar/v3_1700000000000000000" {
		t.Errorf("VersionKey = %q", got)
	}
	if got := DocsAliasKey("foo-bar"); got != "foo-bar-docs" {
		t.Errorf("DocsAliasKey = %q", got)
	}
	if got := DocsVersionKey("foo-bar", 3); got != "foo-bar-docs-v3" {
		t.Errorf("DocsVersionKey = %q", got)
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("abc"))
	if a != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("ContentHash(abc) = %s", a)
	}
	if ContentHash([]byte("abc")) != ContentHash([]byte("abc")) {
		t.Error("ContentHash not deterministic")
	}
}
