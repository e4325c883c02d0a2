// Package classify decides, before any model is called, whether a chat message
// signals an acute crisis or asks for medical advice the service declines to give.
//
// Matching is literal: the lower-cased message is searched for each keyword as a
// substring. There is no tokenization, stemming or negation handling, so
// "i don't want to die" still matches "want to die". That false-positive risk is
// accepted; a crisis screen that misses a real crisis is the worse failure.
package classify

import "strings"

// Kind is the category a message falls into.
type Kind string

const (
	// KindClear means the message may be dispatched to a model.
	KindClear Kind = "clear"

	// KindCrisis means the message matched a crisis keyword.
	KindCrisis Kind = "crisis"

	// KindGuardrail means the message matched a restricted-topic keyword.
	KindGuardrail Kind = "guardrail"
)

// GuardrailReply is returned instead of a model reply for restricted topics.
const GuardrailReply = "I am a wellness assistant and cannot provide medical advice, diagnoses, or medication guidance. Please consult a doctor."

// CrisisKeywords are phrases that indicate self-harm or suicide risk.
var CrisisKeywords = []string{
	"suicide",
	"suicidal",
	"kill myself",
	"killing myself",
	"want to die",
	"wanna die",
	"end my life",
	"ending my life",
	"take my own life",
	"self harm",
	"self-harm",
	"hurt myself",
	"cut myself",
	"no reason to live",
	"better off dead",
}

// GuardrailKeywords are phrases that request medical advice or diagnosis.
var GuardrailKeywords = []string{
	"pills",
	"medication",
	"medicine",
	"dosage",
	"dose",
	"prescription",
	"prescribe",
	"antidepressant",
	"diagnose",
	"diagnosis",
	"overdose",
	"mg of",
}

// Verdict is the outcome of classifying one message. Reply is only set for
// KindGuardrail.
type Verdict struct {
	Kind  Kind
	Reply string
}

// Classifier holds the keyword lists. The zero value matches nothing.
type Classifier struct {
	crisis    []string
	guardrail []string
	reply     string
}

// New builds a Classifier from explicit lists. Keywords are lower-cased once
// here so matching stays a plain substring test.
func New(crisis, guardrail []string, reply string) Classifier {
	return Classifier{
		crisis:    lowerAll(crisis),
		guardrail: lowerAll(guardrail),
		reply:     reply,
	}
}

var std = Default()

// Default returns the Classifier built from the package keyword lists.
func Default() Classifier {
	return New(CrisisKeywords, GuardrailKeywords, GuardrailReply)
}

// Triage reports whether message contains a crisis keyword.
func (c Classifier) Triage(message string) bool {
	return containsAny(strings.ToLower(message), c.crisis)
}

// Guardrail returns the canned reply when message contains a restricted-topic keyword.
func (c Classifier) Guardrail(message string) (string, bool) {
	if containsAny(strings.ToLower(message), c.guardrail) {
		return c.reply, true
	}
	return "", false
}

// Classify runs triage and then guardrail. Crisis takes precedence: when
// triage fires the guardrail list is never consulted.
func (c Classifier) Classify(message string) Verdict {
	if c.Triage(message) {
		return Verdict{Kind: KindCrisis}
	}
	if reply, ok := c.Guardrail(message); ok {
		return Verdict{Kind: KindGuardrail, Reply: reply}
	}
	return Verdict{Kind: KindClear}
}

// Triage reports whether message contains one of CrisisKeywords.
func Triage(message string) bool { return std.Triage(message) }

// Guardrail checks message against GuardrailKeywords.
func Guardrail(message string) (string, bool) { return std.Guardrail(message) }

// Classify runs the Default classifier.
func Classify(message string) Verdict { return std.Classify(message) }

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
