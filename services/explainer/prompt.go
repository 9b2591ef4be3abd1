package explainer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/internal/prompt"
)

const systemPrompt = `You assist airline catering operators handling partially consumed alcohol bottles.
Answer with a single JSON object and nothing else:
{
  "action": "REUSE" | "DISCARD" | "COMBINE" | "HOLD FOR REVIEW",
  "confidence": "high" | "medium" | "low",
  "reasoning": string,
  "operatorInstructions": string[],
  "safetyNotes": string[],
  "nextSteps": string[]
}`

// BuildPrompt renders the user message for one decision. Policy text that
// fails screening is left out.
func BuildPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Airline: %s\n", in.AirlineName)
	fmt.Fprintf(&b, "Bottle type: %s\n", in.BottleType)
	fmt.Fprintf(&b, "Remaining volume: %s%%\n", formatPercent(in.Volume))
	fmt.Fprintf(&b, "Minimum reuse percentage: %s\n", optionalPercent(in.Thresholds.MinReusePercentage))
	fmt.Fprintf(&b, "Discard below: %s\n", optionalPercent(in.Thresholds.DiscardBelow))
	fmt.Fprintf(&b, "Combining allowed: %s\n", optionalBool(in.Thresholds.CanCombine))
	fmt.Fprintf(&b, "Rule-based recommendation: %s\n", in.Recommendation)

	if text := strings.TrimSpace(in.PolicyText); text != "" && prompt.Screen(text) == nil {
		text = prompt.Redact(text)
		fmt.Fprintf(&b, "Policy text:\n\"\"\"%s\"\"\"\n", text)
	}

	b.WriteString("Explain the handling of this bottle for the operator.")
	return b.String()
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionalPercent(v *float64) string {
	if v == nil {
		return "not defined"
	}
	return formatPercent(*v) + "%"
}

func optionalBool(v *bool) string {
	if v == nil {
		return "not defined"
	}
	if *v {
		return "yes"
	}
	return "no"
}
