package markdown

import (
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// RewriteRelativePaths turns relative img[src] and a[href] values under n
// into file:// URLs rooted at baseDir. Absolute paths, URLs, anchors and
// paths escaping baseDir are left alone. An empty baseDir is a no-op.
func RewriteRelativePaths(n *html.Node, baseDir string) error {
	if n == nil || baseDir == "" {
		return nil
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return err
	}
	rewriteNode(n, abs)
	return nil
}

func rewriteNode(n *html.Node, dir string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "img":
			rewriteAttr(n, "src", dir)
		case "a":
			rewriteAttr(n, "href", dir)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteNode(c, dir)
	}
}

func rewriteAttr(n *html.Node, key, dir string) {
	for i, attr := range n.Attr {
		if attr.Key != key || !isRelativePath(attr.Val) {
			continue
		}
		abs := filepath.Join(dir, attr.Val)
		if !isPathUnderDir(abs, dir) {
			continue
		}
		n.Attr[i].Val = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
}

func isRelativePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "#") || strings.HasPrefix(p, "//") {
		return false
	}
	for _, scheme := range []string{"http:", "https:", "file:", "data:", "mailto:"} {
		if strings.HasPrefix(strings.ToLower(p), scheme) {
			return false
		}
	}
	return !filepath.IsAbs(p)
}

func isPathUnderDir(p, dir string) bool {
	cleanDir := filepath.Clean(dir)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(filepath.Clean(p)+string(filepath.Separator), cleanDir)
}
