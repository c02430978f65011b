package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses feed data into posts, preserving feed order.
func (p *Parser) Run(data []byte) ([]Post, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	posts := make([]Post, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		posts = append(posts, p.normalizePost(item))
	}

	return posts, nil
}

func (p *Parser) normalizePost(item *gofeed.Item) Post {
	post := Post{
		ID:        PostID(cmp.Or(item.GUID, item.Link)),
		Title:     item.Title,
		Author:    p.extractAuthor(item),
		Preview:   item.Description,
		ThreadURL: item.Link,
		Published: item.Published,
	}

	if item.PublishedParsed != nil {
		post.PublishedAt = *item.PublishedParsed
	}

	return post
}

// PostID extracts the canonical post ID from a feed entry GUID. The forum
// uses GUIDs of the form "<site>-<topic>-<id>"; the trailing segment after
// the last dash is the numeric post ID.
func PostID(guid string) string {
	if i := strings.LastIndex(guid, "-"); i >= 0 {
		return guid[i+1:]
	}
	return guid
}

func (p *Parser) extractAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		if name := strings.TrimSpace(item.Authors[0].Name); name != "" {
			return name
		}
	}
	if item.Author != nil {
		if name := strings.TrimSpace(item.Author.Name); name != "" {
			return name
		}
		return strings.TrimSpace(item.Author.Email)
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return strings.TrimSpace(item.DublinCoreExt.Creator[0])
	}
	return ""
}
