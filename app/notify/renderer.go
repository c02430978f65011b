package notify

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/bths-robotics/delphi-watch/app/feed"
)

// Posts previews are truncated to fit typical chat message limits.
const previewLimit = 1800

var (
	imgSrcRe     = regexp.MustCompile(`<img[^>]+src="([^"]+)"`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Renderer turns a matched post into a Notification. The core hands out
// raw feed markup; rendering to plain text happens here, on the
// presentation side of the boundary.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Run(post feed.Post, matches []feed.MatchResult, channelID string) Notification {
	n := Notification{
		ChannelID: channelID,
		Headline:  headline(matches),
		Post:      post,
		Preview:   r.renderPreview(post.Preview),
		Matches:   matches,
	}

	if m := imgSrcRe.FindStringSubmatch(post.Preview); m != nil {
		n.Thumbnail = m[1]
	}

	return n
}

func headline(matches []feed.MatchResult) string {
	if len(matches) > 0 && len(matches[0].Matches) > 0 {
		return fmt.Sprintf("Post found with %s", matches[0].Matches[0])
	}
	return "New post"
}

// renderPreview strips markup from the raw preview and collapses
// whitespace, truncating to the preview limit.
func (r *Renderer) renderPreview(preview string) string {
	text := extractText(preview)
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))

	runes := []rune(text)
	if len(runes) > previewLimit {
		return string(runes[:previewLimit]) + "..."
	}
	return text
}

// extractText runs the readability extractor over the preview fragment and
// falls back to a plain tag strip when the fragment is too small for the
// extractor to find an article body.
func extractText(fragment string) string {
	article, err := readability.FromReader(strings.NewReader(fragment), &url.URL{})
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent
	}
	return tagRe.ReplaceAllString(fragment, "")
}
