package domain

import (
	"reflect"
	"testing"
)

func TestDeriveTitleAndTags(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		wantTitle string
		wantTags  []string
	}{
		{
			name:      "separators and extension",
			filename:  "love-you_forever.png",
			wantTitle: "love you forever",
			wantTags:  []string{"love", "forever"},
		},
		{
			name:      "uppercase extension and stop words",
			filename:  "The Best Hugs & Kisses.JPG",
			wantTitle: "The Best Hugs & Kisses",
			wantTags:  []string{"best", "hugs", "kisses"},
		},
		{
			name:      "bounded tag count",
			filename:  "alpha beta gamma delta epsilon zeta.webp",
			wantTitle: "alpha beta gamma delta epsilon zeta",
			wantTags:  []string{"alpha", "beta", "gamma", "delta", "epsilon"},
		},
		{
			name:      "duplicates collapse",
			filename:  "hug HUG hug.gif",
			wantTitle: "hug HUG hug",
			wantTags:  []string{"hug"},
		},
		{
			name:      "unknown extension is kept",
			filename:  "notes.v2",
			wantTitle: "notes.v2",
			wantTags:  []string{"notes.v2"},
		},
		{
			name:      "no usable tags",
			filename:  "a b.png",
			wantTitle: "a b",
			wantTags:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, tags := DeriveTitleAndTags(tt.filename)
			if title != tt.wantTitle {
				t.Errorf("expected title %q, got %q", tt.wantTitle, title)
			}
			if !reflect.DeepEqual(tags, tt.wantTags) {
				t.Errorf("expected tags %v, got %v", tt.wantTags, tags)
			}
		})
	}
}

func TestSuggestCaption(t *testing.T) {
	if got := SuggestCaption("Love", nil); got != "Love" {
		t.Errorf("expected bare title, got %q", got)
	}
	if got := SuggestCaption("Love", []string{"a", "b", "c", "d"}); got != "Love #a #b" {
		t.Errorf("expected two hashtags, got %q", got)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Love Notes", "love-notes"},
		{"  Café & Co!! ", "caf-co"},
		{"Already-slugged", "already-slugged"},
		{"--Edges--", "edges"},
		{"!!!", "collection"},
		{"", "collection"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDisambiguateSlug(t *testing.T) {
	if got := DisambiguateSlug("love", "1AbCdEfGh"); got != "love-1abcde" {
		t.Errorf("unexpected slug %q", got)
	}
	if got := DisambiguateSlug("love", "ab"); got != "love-ab" {
		t.Errorf("unexpected slug %q", got)
	}
	if got := DisambiguateSlug("love", ""); got != "love" {
		t.Errorf("expected slug unchanged, got %q", got)
	}
}
