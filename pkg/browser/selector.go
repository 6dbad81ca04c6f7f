package browser

import (
	"fmt"
	"strings"
)

// Quote renders s as a double-quoted CSS string.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}

// ByID matches the element whose id is exactly id. The attribute form keeps
// ids that are not valid CSS identifiers usable.
func ByID(id string) string {
	return "[id=" + Quote(id) + "]"
}

// ByName matches elements whose name attribute is exactly name.
func ByName(name string) string {
	return "[name=" + Quote(name) + "]"
}

// ByAttr matches tag (any tag when empty) with attr equal to value.
func ByAttr(tag, attr, value string) string {
	return fmt.Sprintf("%s[%s=%s]", tag, attr, Quote(value))
}

// ByAttrContains matches tag (any tag when empty) whose attr contains value.
func ByAttrContains(tag, attr, value string) string {
	return fmt.Sprintf("%s[%s*=%s]", tag, attr, Quote(value))
}

// ByText matches the smallest element whose text contains text.
func ByText(text string) string {
	return "text=" + text
}

// HasText matches tag elements containing text.
func HasText(tag, text string) string {
	return fmt.Sprintf("%s:has-text(%s)", tag, Quote(text))
}

// xpathLiteral renders s as an XPath string literal.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// XPathRowRadio matches radio inputs named radioName inside a table row
// that has a cell containing every one of texts.
func XPathRowRadio(radioName string, texts ...string) string {
	conds := make([]string, 0, len(texts))
	for _, t := range texts {
		if t == "" {
			continue
		}
		conds = append(conds, fmt.Sprintf("contains(normalize-space(.), %s)", xpathLiteral(t)))
	}
	cell := "td"
	if len(conds) > 0 {
		cell = "td[" + strings.Join(conds, " and ") + "]"
	}
	return fmt.Sprintf("xpath=//tr[%s]//input[@type='radio'][@name=%s]", cell, xpathLiteral(radioName))
}

// Radio matches radio inputs named name.
func Radio(name string) string {
	return `input[type="radio"][name=` + Quote(name) + `]`
}

// OnclickContains matches tag (any tag when empty) whose onclick handler
// mentions token.
func OnclickContains(tag, token string) string {
	return ByAttrContains(tag, "onclick", token)
}
