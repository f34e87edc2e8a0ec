package uploads

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// acceptRule is one comma-separated token of an accept expression.
type acceptRule struct {
	ext      string // ".pdf"
	mime     string // "application/pdf"
	wildcard string // "image/" from "image/*"
}

func parseAccept(expr string) []acceptRule {
	var rules []acceptRule
	for _, tok := range strings.Split(expr, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		switch {
		case tok == "" || tok == "*" || tok == "*/*":
			continue
		case strings.HasPrefix(tok, "."):
			rules = append(rules, acceptRule{ext: normalizeExt(tok)})
		case strings.HasSuffix(tok, "/*"):
			rules = append(rules, acceptRule{wildcard: strings.TrimSuffix(tok, "*")})
		default:
			rules = append(rules, acceptRule{mime: tok})
		}
	}
	return rules
}

// accepts matches the sniffed content, never the client-supplied name or
// header, so a renamed file cannot slip through.
func (c *Collector) accepts(detected *mimetype.MIME) bool {
	if len(c.rules) == 0 {
		return true
	}
	ext := normalizeExt(detected.Extension())
	ct := baseType(detected.String())
	for _, r := range c.rules {
		switch {
		case r.ext != "" && r.ext == ext:
			return true
		case r.wildcard != "" && strings.HasPrefix(ct, r.wildcard):
			return true
		case r.mime != "" && detected.Is(r.mime):
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext == ".jpeg" {
		return ".jpg"
	}
	return ext
}
