// Package prompt screens free text before it is embedded in a language
// model prompt. Airline policy texts are operator-editable, so they are
// checked for instruction injection and stripped of contact details.
package prompt

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInjection is returned when text tries to steer the model
var ErrInjection = errors.New("text contains prompt instructions")

// InjectionType classifies a detected injection attempt
type InjectionType string

const (
	InjectionTypeInstructionOverride InjectionType = "instruction_override"
	InjectionTypeRoleManipulation    InjectionType = "role_manipulation"
	InjectionTypeDelimiterAttack     InjectionType = "delimiter_attack"
	InjectionTypeOutputOverride      InjectionType = "output_override"
)

// Detection is a single suspicious span
type Detection struct {
	Type     InjectionType
	StartPos int
	EndPos   int
}

type rule struct {
	kind     InjectionType
	patterns []*regexp.Regexp
}

var rules = []rule{
	{
		kind: InjectionTypeInstructionOverride,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+|any\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules)`),
			regexp.MustCompile(`(?i)override\s+(all|previous|system)\s+(instructions?|rules|settings?)`),
			regexp.MustCompile(`(?i)new\s+instructions?\s*:`),
		},
	},
	{
		kind: InjectionTypeRoleManipulation,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\byou\s+are\s+now\b`),
			regexp.MustCompile(`(?i)pretend\s+(to\s+)?be\s+(a|an)\b`),
			regexp.MustCompile(`(?i)from\s+now\s+on,?\s+you\b`),
		},
	},
	{
		kind: InjectionTypeDelimiterAttack,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`"""`),
			regexp.MustCompile(`(?i)\[/?(system|user|assistant)\]`),
			regexp.MustCompile(`<\|(system|user|assistant|end)\|>`),
			regexp.MustCompile(`(?i)###\s*(system|user|assistant|instruction)`),
		},
	},
	{
		kind: InjectionTypeOutputOverride,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(respond|reply|answer|output)\s+(only\s+)?with\s+(the\s+)?(json|action|value)`),
			regexp.MustCompile(`(?i)set\s+(minReusePercentage|discardBelow|canCombine|action|confidence)\s+to`),
		},
	},
}

// Detect returns every suspicious span in text
func Detect(text string) []Detection {
	var detections []Detection
	for _, r := range rules {
		for _, p := range r.patterns {
			for _, m := range p.FindAllStringIndex(text, -1) {
				detections = append(detections, Detection{Type: r.kind, StartPos: m[0], EndPos: m[1]})
			}
		}
	}
	return detections
}

// Screen returns an error wrapping ErrInjection when text contains any
// detection, otherwise nil.
func Screen(text string) error {
	detections := Detect(text)
	if len(detections) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s at offset %d", ErrInjection, detections[0].Type, detections[0].StartPos)
}
