// Package action classifies spreadsheet cell values into UI actions.
//
// A cell value is either empty (no action), prefix-coded, or plain:
//
//	$submit   button click
//	@WF_YB6   navigation panel click, token "WF_YB6"
//	*1142     bank card selection by tail digits "1142"
//	张三      fill, or dropdown selection when the column is a dropdown field
//
// Classification is pure: it never touches the page.
package action

import (
	"strings"
)

// Kind identifies what the executor does with a descriptor.
type Kind int

const (
	// KindFill clears the target input and types the payload.
	KindFill Kind = iota
	// KindDropdown selects the option whose value equals the payload.
	KindDropdown
	// KindButton clicks the target element.
	KindButton
	// KindNavPanel clicks a navigation panel entry identified by a token.
	KindNavPanel
	// KindCardTail selects a bank card by its trailing digits and confirms the dialog.
	KindCardTail
)

// Prefix characters for prefix-coded cell values.
const (
	PrefixButton   = '$'
	PrefixNavPanel = '@'
	PrefixCardTail = '*'
)

func (k Kind) String() string {
	switch k {
	case KindFill:
		return "fill"
	case KindDropdown:
		return "dropdown-select"
	case KindButton:
		return "button-click"
	case KindNavPanel:
		return "nav-panel-click"
	case KindCardTail:
		return "card-tail-select"
	default:
		return "unknown"
	}
}

// TokenDriven reports whether the payload alone is enough to find the element,
// so a missing title mapping does not prevent the action.
func (k Kind) TokenDriven() bool {
	return k == KindNavPanel || k == KindCardTail
}

// Descriptor is a single classified action.
type Descriptor struct {
	Kind Kind

	// Target is the logical element identifier. The classifier leaves it
	// empty; callers set it after resolving the column title.
	Target string

	// Payload is the fill text, option value, nav token or card digits.
	Payload string

	// Title and Raw are the source column and unmodified cell text.
	Title string
	Raw   string

	// Secret hides the payload in logs and reports.
	Secret bool
}

// Shown returns the payload for display, masked when the descriptor is secret.
func (d Descriptor) Shown() string {
	if d.Secret {
		return "******"
	}
	return d.Payload
}

// DropdownLookup answers dropdown membership and label translation for a title.
type DropdownLookup interface {
	IsDropdown(title string) bool
	Translate(title, label string) (string, bool)
}

// Classifier turns (title, value) pairs into descriptors.
type Classifier struct {
	dropdowns DropdownLookup
}

// NewClassifier creates a classifier. A nil lookup means no column is a dropdown.
func NewClassifier(dropdowns DropdownLookup) *Classifier {
	return &Classifier{dropdowns: dropdowns}
}

// Classify maps a raw cell value to a descriptor. It returns false when the
// cell is empty and no action should be taken.
func (c *Classifier) Classify(title, raw string) (Descriptor, bool) {
	value := Normalize(raw)
	if value == "" {
		return Descriptor{}, false
	}

	d := Descriptor{Title: title, Raw: raw}

	switch value[0] {
	case PrefixButton:
		d.Kind = KindButton
		d.Payload = value[1:]
		return d, true
	case PrefixNavPanel:
		d.Kind = KindNavPanel
		d.Payload = value[1:]
		return d, true
	case PrefixCardTail:
		d.Kind = KindCardTail
		d.Payload = value[1:]
		return d, true
	}

	if c.dropdowns != nil && c.dropdowns.IsDropdown(title) {
		d.Kind = KindDropdown
		d.Payload = value
		if mapped, ok := c.dropdowns.Translate(title, value); ok {
			d.Payload = mapped
		}
		return d, true
	}

	d.Kind = KindFill
	d.Payload = value
	return d, true
}

// Normalize trims surrounding whitespace and drops the ".0" suffix that
// spreadsheet readers add to whole numbers. Only values that are otherwise a
// run of digits with an optional leading sign are changed, so "12.05" and
// "v1.0" are left alone. Normalize is idempotent.
func Normalize(raw string) string {
	value := strings.TrimSpace(raw)
	if !strings.HasSuffix(value, ".0") {
		return value
	}

	head := strings.TrimSuffix(value, ".0")
	digits := head
	if strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}
	if digits == "" {
		return value
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return value
		}
	}
	return head
}
