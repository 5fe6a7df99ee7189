package listing

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const upstreamHost = "https://www.reddit.com"

// ExternalURL returns where a post's title should link, or "" when the
// post should open in the thread view. Self posts and upstream-hosted
// media stay internal; absolute upstream links become relative paths.
func ExternalURL(it Item) string {
	if strings.HasPrefix(it.Domain, "self.") || strings.HasSuffix(it.Domain, "redd.it") {
		return ""
	}
	if it.URL == "" {
		return ""
	}
	if strings.HasPrefix(it.URL, upstreamHost) {
		return strings.TrimPrefix(it.URL, upstreamHost)
	}
	return it.URL
}

// IsImage reports whether the post is a direct image link.
func IsImage(it Item) bool {
	return it.PostHint == "image"
}

// MediaSource returns the address of the embedded player, if any. The
// embed markup arrives HTML-escaped and usually wraps an iframe.
func MediaSource(it Item) string {
	if IsImage(it) {
		return it.URL
	}
	content := strings.TrimSpace(it.MediaEmbed.Content)
	if content == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html.UnescapeString(content)))
	if err != nil {
		return ""
	}
	for _, tag := range []string{"iframe", "video source", "video", "embed"} {
		if src, ok := doc.Find(tag).First().Attr("src"); ok && src != "" {
			return src
		}
	}
	if href, ok := doc.Find("a").First().Attr("href"); ok {
		return href
	}
	return ""
}
