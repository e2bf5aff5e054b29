package sandbox

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// script is one executable <script> element
type script struct {
	name   string
	source string
}

// parseDocument parses the document and returns its inline scripts in
// document order along with the parse tree.
func parseDocument(document string) ([]script, *html.Node, error) {
	root, err := htmlquery.Parse(strings.NewReader(document))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse document: %w", err)
	}

	nodes, err := htmlquery.QueryAll(root, "//script")
	if err != nil {
		return nil, nil, fmt.Errorf("script query failed: %w", err)
	}

	scripts := make([]script, 0, len(nodes))
	for i, node := range nodes {
		if !isExecutable(node) {
			continue
		}
		scripts = append(scripts, script{
			name:   fmt.Sprintf("script-%d.js", i),
			source: htmlquery.InnerText(node),
		})
	}
	return scripts, root, nil
}

// isExecutable skips external and non-JavaScript scripts
func isExecutable(node *html.Node) bool {
	for _, attr := range node.Attr {
		switch strings.ToLower(attr.Key) {
		case "src":
			return false
		case "type":
			t := strings.ToLower(strings.TrimSpace(attr.Val))
			if t != "" && t != "text/javascript" && t != "application/javascript" && t != "module" {
				return false
			}
		}
	}
	return true
}
