package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

func (e *Extractor) extractURL(ctx context.Context, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fail(ReasonCorruptDocument, fmt.Errorf("invalid url %q", raw))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fail(ReasonCorruptDocument, err)
	}
	req.Header.Set("Accept", "text/html,application/pdf,text/plain;q=0.9,*/*;q=0.5")
	resp, err := e.http.Do(req)
	if errors.Is(err, errBlockedAddress) {
		return "", fail(ReasonCorruptDocument, fmt.Errorf("fetch %s: %w", u.Host, err))
	}
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fail(ReasonCorruptDocument, fmt.Errorf("fetch %s: http %d", u.Host, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxFetchBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", u.Host, err)
	}
	if int64(len(body)) > e.maxFetchBytes {
		return "", fail(ReasonCorruptDocument, fmt.Errorf("document at %s exceeds %d bytes", u.Host, e.maxFetchBytes))
	}
	if len(body) == 0 {
		return "", fail(ReasonEmptyInput, nil)
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "application/pdf") || bytes.HasPrefix(body, []byte("%PDF-")):
		return extractPDF(body)
	case strings.Contains(ct, "text/html") || strings.Contains(ct, "xhtml"):
		return htmlText(body)
	default:
		return sanitizeUTF8(string(body)), nil
	}
}

// htmlText returns the visible text of an HTML document, one block per line.
func htmlText(body []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fail(ReasonCorruptDocument, err)
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template", "svg", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.Data) {
			sb.WriteString("\n")
		}
	}
	walk(root)
	return sanitizeUTF8(sb.String()), nil
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "li", "br", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "pre", "blockquote":
		return true
	}
	return false
}
