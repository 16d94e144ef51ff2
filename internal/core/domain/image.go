package domain

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// Response size thresholds used when no magic bytes match.
const (
	MinImageBytes        = 50
	MinDeclaredImageSize = 500
	MinOctetStreamSize   = 1000
)

// DefaultImageSize is the thumbnail width requested when none is given.
const DefaultImageSize = 1000

// ImageResult holds resolved image bytes
type ImageResult struct {
	Data        []byte    `json:"-"`
	ContentType string    `json:"content_type"`
	Strategy    string    `json:"strategy"`
	Placeholder bool      `json:"placeholder"`
	FromCache   bool      `json:"from_cache"`
	StoredAt    time.Time `json:"stored_at"`
}

// ImageCacheKey keys the image cache by file id and requested size.
func ImageCacheKey(fileID string, size int) string {
	if size <= 0 {
		return fileID + ":full"
	}
	return fileID + ":" + strconv.Itoa(size)
}

// ImageVerdict is the outcome of inspecting a raw HTTP response
type ImageVerdict int

const (
	// VerdictReject means the body is not an image.
	VerdictReject ImageVerdict = iota
	// VerdictHTML means the body is an HTML page, possibly an interstitial.
	VerdictHTML
	// VerdictAccept means the body is genuine image bytes.
	VerdictAccept
)

type signature struct {
	prefix      []byte
	offset      int
	contentType string
}

var signatures = []signature{
	{prefix: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, contentType: "image/png"},
	{prefix: []byte{0xff, 0xd8, 0xff}, contentType: "image/jpeg"},
	{prefix: []byte("GIF87a"), contentType: "image/gif"},
	{prefix: []byte("GIF89a"), contentType: "image/gif"},
	{prefix: []byte("WEBP"), offset: 8, contentType: "image/webp"},
	{prefix: []byte("BM"), contentType: "image/bmp"},
	{prefix: []byte{'I', 'I', '*', 0x00}, contentType: "image/tiff"},
	{prefix: []byte{'M', 'M', 0x00, '*'}, contentType: "image/tiff"},
	{prefix: []byte{0x00, 0x00, 0x01, 0x00}, contentType: "image/x-icon"},
}

// InspectImageResponse decides whether a response body is a genuine image.
// It returns the verdict and, on acceptance, the content type to serve.
func InspectImageResponse(body []byte, contentType string) (ImageVerdict, string) {
	if len(body) < MinImageBytes {
		return VerdictReject, ""
	}

	declared := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}

	if declared == "text/html" || LooksLikeHTML(body) {
		return VerdictHTML, ""
	}

	if detected := DetectImageType(body); detected != "" {
		return VerdictAccept, detected
	}

	switch {
	case strings.HasPrefix(declared, "image/") && len(body) > MinDeclaredImageSize:
		return VerdictAccept, declared
	case declared == "application/octet-stream" && len(body) > MinOctetStreamSize:
		return VerdictAccept, declared
	}
	return VerdictReject, ""
}

// LooksLikeHTML sniffs a leading doctype or html tag.
func LooksLikeHTML(body []byte) bool {
	head := leadingBytes(body, 512)
	return bytes.HasPrefix(head, []byte("<!doctype")) || bytes.HasPrefix(head, []byte("<html"))
}

// DetectImageType matches known image magic bytes.
func DetectImageType(body []byte) string {
	for _, sig := range signatures {
		end := sig.offset + len(sig.prefix)
		if len(body) >= end && bytes.Equal(body[sig.offset:end], sig.prefix) {
			if sig.contentType == "image/webp" && !bytes.HasPrefix(body, []byte("RIFF")) {
				continue
			}
			return sig.contentType
		}
	}
	if head := leadingBytes(body, 1024); len(head) > 0 && head[0] == '<' && bytes.Contains(head, []byte("<svg")) {
		return "image/svg+xml"
	}
	return ""
}

// leadingBytes returns up to n lowercased bytes with leading whitespace and
// a UTF-8 BOM removed.
func leadingBytes(body []byte, n int) []byte {
	b := bytes.TrimPrefix(body, []byte{0xef, 0xbb, 0xbf})
	b = bytes.TrimLeft(b, " \t\r\n")
	if len(b) > n {
		b = b[:n]
	}
	return bytes.ToLower(b)
}
