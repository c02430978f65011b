package feed

import (
	"strings"
)

// Matcher evaluates posts against trigger rules. Evaluation is pure: the
// caller supplies a rules snapshot per call and decides what a match (or
// the absence of any configured trigger) gates downstream.
type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// Run evaluates each rule independently against the post and returns one
// MatchResult per rule that fired, in rule order. Within a single rule an
// author match wins and the keyword set is not evaluated.
func (m *Matcher) Run(post Post, rules []TriggerRule) []MatchResult {
	var results []MatchResult

	for _, rule := range rules {
		if m.matchesAuthor(post, rule.Authors) {
			results = append(results, MatchResult{
				Rule:    rule,
				Type:    MatchTypeAuthor,
				Matches: []string{post.Author},
			})
			continue
		}

		matches := m.matchKeywords(post, rule.Keywords)
		if len(matches) > 0 {
			results = append(results, MatchResult{
				Rule:    rule,
				Type:    MatchTypeKeyword,
				Matches: matches,
			})
		}
	}

	return results
}

func (m *Matcher) matchesAuthor(post Post, authors []string) bool {
	for _, author := range authors {
		if strings.EqualFold(post.Author, author) {
			return true
		}
	}
	return false
}

func (m *Matcher) matchKeywords(post Post, keywords []string) []string {
	previewLower := strings.ToLower(post.Preview)
	titleLower := strings.ToLower(post.Title)

	var matches []string
	for _, keyword := range keywords {
		keywordLower := strings.ToLower(keyword)
		if strings.Contains(previewLower, keywordLower) || strings.Contains(titleLower, keywordLower) {
			matches = append(matches, keyword)
		}
	}
	return matches
}
