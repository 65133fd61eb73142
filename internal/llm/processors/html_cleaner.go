package processors

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	whitespaceRegex = regexp.MustCompile(`[ \t\f\v]+`)
	newlineRegex    = regexp.MustCompile(`\s*\n\s*`)
	noiseRegexes    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bJavaScript\s+is\s+disabled\b[^.]*\.`),
		regexp.MustCompile(`(?i)\bCookies?\s+are\s+disabled\b[^.]*\.`),
		regexp.MustCompile(`(?i)\bPlease\s+enable\s+JavaScript\b[^.]*\.?`),
		regexp.MustCompile(`(?i)\bThis\s+site\s+requires\s+JavaScript\b[^.]*\.?`),
	}
	htmlHintRegex = regexp.MustCompile(`(?i)<(!doctype|html|head|body|div|p|span)[\s>]`)
)

// blockTags get a line break after their text so paragraphs survive flattening
var blockTags = "p, div, li, h1, h2, h3, h4, h5, h6, br, tr, section, article, ul, ol, dd, dt"

// HTMLCleaner turns rendered page markup into prompt-ready text
type HTMLCleaner struct {
	// Tags to remove completely
	removeTags []string
	// Containers that usually hold the posting body, most specific first
	jobSelectors []string
	// Containers shorter than this are ignored
	minContainerChars int
}

// NewHTMLCleaner creates a new HTML cleaner instance
func NewHTMLCleaner() *HTMLCleaner {
	return &HTMLCleaner{
		removeTags: []string{
			"script", "style", "noscript", "iframe", "object", "embed",
			"applet", "form", "input", "button", "select", "textarea",
			"nav", "footer", "aside", "menu", "menuitem",
			"svg", "meta", "link", "base", "template",
		},
		jobSelectors: []string{
			"[data-testid*='job']", "[data-test*='job']", "[data-qa*='job']",
			".job-description", ".job-detail", ".job-posting", ".posting", ".vacancy",
			"section[class*='job']", "section[class*='posting']",
			"article", "main", "[role='main']", "#main",
		},
		minContainerChars: 200,
	}
}

// LooksLikeHTML reports whether content appears to be markup rather than plain text or markdown
func LooksLikeHTML(content string) bool {
	prefix := content
	if len(prefix) > 2048 {
		prefix = prefix[:2048]
	}
	return htmlHintRegex.MatchString(prefix)
}

// ExtractJobContent returns the text of the container most likely to hold the job posting,
// falling back to the whole body
func (hc *HTMLCleaner) ExtractJobContent(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", err
	}

	for _, tag := range hc.removeTags {
		doc.Find(tag).Remove()
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("head").Remove()

	// mark block boundaries before Text() flattens the tree
	doc.Find(blockTags).Each(func(i int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			node.AppendChild(&html.Node{Type: html.TextNode, Data: "\n"})
		}
	})

	var best string
	for _, selector := range hc.jobSelectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if utf8.RuneCountInString(text) >= hc.minContainerChars && len(text) > len(best) {
				best = text
			}
		})
		if best != "" {
			break
		}
	}

	if best == "" {
		best = doc.Find("body").Text()
		if strings.TrimSpace(best) == "" {
			best = doc.Text()
		}
	}

	content := hc.cleanExtractedText(best)
	if title != "" && !strings.Contains(content, title) {
		content = title + "\n" + content
	}

	return content, nil
}

// cleanExtractedText collapses whitespace while keeping line structure
func (hc *HTMLCleaner) cleanExtractedText(text string) string {
	for _, regex := range noiseRegexes {
		text = regex.ReplaceAllString(text, "")
	}

	text = whitespaceRegex.ReplaceAllString(text, " ")
	text = newlineRegex.ReplaceAllString(text, "\n")

	return strings.TrimSpace(text)
}
