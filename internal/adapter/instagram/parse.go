package instagram

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

const (
	baseURL = "https://www.instagram.com"

	// minCaptionLen filters out usernames, button labels and counters.
	minCaptionLen = 20
)

var (
	hashtagPattern   = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	bareMentionRegex = regexp.MustCompile(`^@\w+$`)
	tagPathPattern   = regexp.MustCompile(`/explore/tags/([^/?#]+)`)
)

// SourcePageURL returns the page to crawl for a source. A source URL of the
// form "#banjir" or "banjir" (no scheme) is treated as a hashtag feed.
func SourcePageURL(src domain.Source) string {
	u := strings.TrimSpace(src.URL)
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	tag := strings.TrimPrefix(u, "#")
	return fmt.Sprintf("%s/explore/tags/%s/", baseURL, url.PathEscape(tag))
}

// ParseProfileHTML extracts up to limit post candidates from a rendered
// profile or hashtag page. Links inside <article> are preferred; when there
// are none every post link in the document is used.
func ParseProfileHTML(page []byte, limit int) ([]domain.RawPost, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse profile html: %w", err)
	}

	var links []*html.Node
	for _, article := range findAll(doc, func(n *html.Node) bool { return isElement(n, "article") }) {
		links = append(links, findAll(article, isPostLink)...)
	}
	if len(links) == 0 {
		links = findAll(doc, isPostLink)
	}

	base, _ := url.Parse(baseURL)
	seen := make(map[string]bool)
	posts := make([]domain.RawPost, 0, limit)
	for _, a := range links {
		if len(posts) >= limit {
			break
		}
		ref, err := base.Parse(attrVal(a, "href"))
		if err != nil {
			continue
		}
		ref.RawQuery, ref.Fragment = "", ""
		postURL := ref.String()
		if seen[postURL] {
			continue
		}
		seen[postURL] = true

		img := findFirst(a, func(n *html.Node) bool { return isElement(n, "img") })
		caption := attrVal(a, "aria-label")
		if caption == "" && img != nil {
			caption = attrVal(img, "alt")
		}
		posts = append(posts, domain.RawPost{
			URL:      postURL,
			ImageURL: imageSource(img),
			Text:     caption,
			Caption:  caption,
			Hashtags: hashtagsFrom(caption, nil),
		})
	}
	return posts, nil
}

// ParsePostHTML extracts the post fields from a rendered post page.
func ParsePostHTML(page []byte, postURL string) (*domain.RawPost, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse post html: %w", err)
	}

	article := findFirst(doc, func(n *html.Node) bool { return isElement(n, "article") })
	scope := article
	if scope == nil {
		scope = findFirst(doc, func(n *html.Node) bool { return isElement(n, "main") })
	}
	if scope == nil {
		scope = doc
	}

	caption := longestCaption(scope)

	var tagLinks []string
	for _, a := range findAll(doc, func(n *html.Node) bool { return isElement(n, "a") }) {
		if m := tagPathPattern.FindStringSubmatch(attrVal(a, "href")); m != nil {
			if tag, err := url.PathUnescape(m[1]); err == nil {
				tagLinks = append(tagLinks, "#"+tag)
			}
		}
	}

	post := &domain.RawPost{
		URL:      postURL,
		ImageURL: postImage(scope, doc),
		Text:     caption,
		Caption:  caption,
		Hashtags: hashtagsFrom(caption, tagLinks),
	}

	if loc := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "a") && strings.Contains(attrVal(n, "href"), "/explore/locations/")
	}); loc != nil {
		post.LocationText = strings.TrimSpace(textContent(loc))
	}

	if t := findFirst(doc, func(n *html.Node) bool { return isElement(n, "time") }); t != nil {
		post.Timestamp = attrVal(t, "datetime")
		if post.Timestamp == "" {
			post.Timestamp = attrVal(t, "title")
		}
	}
	return post, nil
}

// longestCaption picks the longest text block that looks like a caption,
// falling back to the longest line of the whole scope.
func longestCaption(scope *html.Node) string {
	var best string
	for _, n := range findAll(scope, func(n *html.Node) bool {
		return (isElement(n, "span") && attrVal(n, "dir") == "auto") || isElement(n, "h1")
	}) {
		text := strings.TrimSpace(textContent(n))
		if len(text) > minCaptionLen && !bareMentionRegex.MatchString(text) && len(text) > len(best) {
			best = text
		}
	}
	if best != "" {
		return best
	}

	for _, line := range strings.Split(blockText(scope), "\n") {
		line = strings.TrimSpace(line)
		if len(line) > minCaptionLen && !bareMentionRegex.MatchString(line) && len(line) > len(best) {
			best = line
		}
	}
	return best
}

func postImage(scope, doc *html.Node) string {
	if img := findFirst(scope, func(n *html.Node) bool { return isElement(n, "img") }); img != nil {
		if src := imageSource(img); src != "" {
			return src
		}
	}
	img := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "img") && strings.Contains(attrVal(n, "src"), "instagram")
	})
	return imageSource(img)
}

func imageSource(img *html.Node) string {
	if img == nil {
		return ""
	}
	if src := attrVal(img, "src"); src != "" {
		return src
	}
	if fields := strings.Fields(attrVal(img, "srcset")); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// hashtagsFrom merges linked tags with tags found in the caption, keeping
// first-seen order.
func hashtagsFrom(caption string, linked []string) []string {
	tags := make([]string, 0, len(linked))
	seen := make(map[string]bool)
	for _, tag := range append(linked, hashtagPattern.FindAllString(caption, -1)...) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// --- html helpers ---

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func isPostLink(n *html.Node) bool {
	return isElement(n, "a") && strings.Contains(attrVal(n, "href"), "/p/")
}

func attrVal(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return out
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root == nil {
		return nil
	}
	if match(root) {
		return root
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, match); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

// blockText renders text with a newline after each block-level element,
// approximating what a browser shows as separate lines.
func blockText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "div", "p", "li", "h1", "h2", "h3", "section", "ul", "br":
				b.WriteByte('\n')
			}
		}
	}
	walk(n)
	return b.String()
}
