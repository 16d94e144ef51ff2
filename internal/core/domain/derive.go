package domain

import (
	"path"
	"regexp"
	"strings"
)

// MaxTags bounds the tag set derived from a filename.
const MaxTags = 5

// imageExtensions lists the extensions stripped when deriving a title.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".ico":  true,
	".heic": true,
}

var stopWords = map[string]bool{
	"the":   true,
	"and":   true,
	"for":   true,
	"with":  true,
	"from":  true,
	"this":  true,
	"that":  true,
	"are":   true,
	"was":   true,
	"you":   true,
	"your":  true,
	"our":   true,
	"not":   true,
	"but":   true,
	"into":  true,
	"copy":  true,
	"final": true,
	"img":   true,
	"image": true,
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes  = regexp.MustCompile(`-{2,}`)
)

// DeriveTitleAndTags maps a raw filename to a display title and a bounded,
// ordered, duplicate-free set of lowercase search tags.
func DeriveTitleAndTags(filename string) (string, []string) {
	name := strings.TrimSpace(filename)
	if ext := path.Ext(name); imageExtensions[strings.ToLower(ext)] {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	title := strings.Join(strings.Fields(name), " ")

	tags := make([]string, 0, MaxTags)
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(title)) {
		tok = strings.Trim(tok, ".,;:!?'\"()[]{}")
		if len(tok) <= 2 || stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		tags = append(tags, tok)
		if len(tags) == MaxTags {
			break
		}
	}
	return title, tags
}

// maxCaptionHashtags caps how many tags SuggestCaption appends.
const maxCaptionHashtags = 2

// SuggestCaption builds the share caption suggested alongside a sticker:
// the title followed by the first two tags as hashtags.
func SuggestCaption(title string, tags []string) string {
	if len(tags) == 0 {
		return title
	}
	n := min(len(tags), maxCaptionHashtags)
	hashtags := make([]string, n)
	for i := 0; i < n; i++ {
		hashtags[i] = "#" + tags[i]
	}
	return title + " " + strings.Join(hashtags, " ")
}

// Slugify lowercases name, turns spaces into hyphens and strips anything
// outside [a-z0-9-].
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "collection"
	}
	return s
}

// DisambiguateSlug suffixes a conflicting slug with the first six characters
// of the Drive folder id.
func DisambiguateSlug(slug, folderID string) string {
	frag := strings.ToLower(folderID)
	if len(frag) > 6 {
		frag = frag[:6]
	}
	frag = slugInvalid.ReplaceAllString(frag, "")
	if frag == "" {
		return slug
	}
	return slug + "-" + frag
}
