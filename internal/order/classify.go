package order

import "strings"

const milkNone = "none"

// sizeRules are evaluated in order; the first family with a matching token wins.
var sizeRules = []struct {
	class  SizeClass
	tokens []string
}{
	{class: SizeSmall, tokens: []string{"small", "tall"}},
	{class: SizeLarge, tokens: []string{"large", "venti"}},
}

// ClassifySize maps a free-form size descriptor to a SizeClass using
// case-insensitive substring matching. Unrecognised or empty input is medium.
func ClassifySize(raw string) SizeClass {
	if raw == "" {
		return SizeMedium
	}
	size := strings.ToLower(raw)
	for _, rule := range sizeRules {
		for _, token := range rule.tokens {
			if strings.Contains(size, token) {
				return rule.class
			}
		}
	}
	return SizeMedium
}

// HasWhippedTopping joins the extras with spaces and looks for "whip"
// anywhere in the text. Negations like "no whip" match as well.
func HasWhippedTopping(extras []string) bool {
	if len(extras) == 0 {
		return false
	}
	return strings.Contains(strings.ToLower(strings.Join(extras, " ")), "whip")
}

// HasMilkAdded is true for any non-empty milk descriptor other than "none".
func HasMilkAdded(milk string) bool {
	if milk == "" {
		return false
	}
	return !strings.EqualFold(milk, milkNone)
}
