package prompt

import (
	"regexp"
	"sort"
	"strings"
)

// ContactType is the kind of personal contact detail found in text
type ContactType string

const (
	ContactTypeEmail      ContactType = "email"
	ContactTypePhone      ContactType = "phone"
	ContactTypeCreditCard ContactType = "credit_card"
)

type span struct {
	kind       ContactType
	start, end int
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	// Phone numbers need a leading + or a separated 3-3-4 grouping so bare
	// percentages and volumes in policy text are never matched.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+\d{1,3}[\s.-]?\(?\d{1,4}\)?(?:[\s.-]?\d{2,4}){2,4}\b`),
		regexp.MustCompile(`\(?\b\d{3}\)?[\s.-]\d{3}[\s.-]\d{4}\b`),
	}

	cardPattern = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)
)

var redactions = map[ContactType]string{
	ContactTypeEmail:      "[EMAIL_REDACTED]",
	ContactTypePhone:      "[PHONE_REDACTED]",
	ContactTypeCreditCard: "[CC_REDACTED]",
}

// Redact replaces email addresses, phone numbers and card numbers in text
// with fixed placeholders.
func Redact(text string) string {
	spans := findContacts(text)
	if len(spans) == 0 {
		return text
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start == spans[j].start {
			return spans[i].end > spans[j].end
		}
		return spans[i].start < spans[j].start
	})

	var b strings.Builder
	last := 0
	for _, s := range spans {
		if s.start < last {
			continue
		}
		b.WriteString(text[last:s.start])
		b.WriteString(redactions[s.kind])
		last = s.end
	}
	b.WriteString(text[last:])
	return b.String()
}

// ContainsContact reports whether Redact would change text
func ContainsContact(text string) bool {
	return len(findContacts(text)) > 0
}

func findContacts(text string) []span {
	var spans []span
	for _, m := range emailPattern.FindAllStringIndex(text, -1) {
		spans = append(spans, span{ContactTypeEmail, m[0], m[1]})
	}
	for _, m := range cardPattern.FindAllStringIndex(text, -1) {
		if luhnCheck(text[m[0]:m[1]]) {
			spans = append(spans, span{ContactTypeCreditCard, m[0], m[1]})
		}
	}
	for _, p := range phonePatterns {
		for _, m := range p.FindAllStringIndex(text, -1) {
			spans = append(spans, span{ContactTypePhone, m[0], m[1]})
		}
	}
	return spans
}

func luhnCheck(number string) bool {
	number = strings.NewReplacer(" ", "", "-", "").Replace(number)
	if len(number) < 13 || len(number) > 19 {
		return false
	}

	sum := 0
	second := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if second {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		second = !second
	}
	return sum%10 == 0
}
