package rag

import (
	"regexp"
	"strings"
)

// Patterns applied by Sanitize, in order.
var (
	// thinkOpenRe and thinkCloseRe delimit <think> / <thinking> blocks.
	thinkOpenRe  = regexp.MustCompile(`(?i)<think(?:ing)?\s*>`)
	thinkCloseRe = regexp.MustCompile(`(?i)</think(?:ing)?\s*>`)

	// thinkingLineRe matches emphasized "thinking:" lines in either
	// supported language.
	thinkingLineRe = regexp.MustCompile(`(?im)^[ \t]*(?:[*_]{1,2})?[ \t]*(?:thinking|思考)[ \t]*[:：].*$`)

	// strayTagRe matches leftover XML/HTML-like tags, including
	// unbalanced think tags that survived block removal.
	strayTagRe = regexp.MustCompile(`</?[a-zA-Z][^<>]*>`)

	// newlineRunRe matches three or more consecutive newlines.
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

// Sanitize cleans raw model output for presentation: chain-of-thought
// leakage, markup artifacts, and excess whitespace are removed, and an
// empty result is replaced by a fixed apology.
//
// Sanitize is deterministic and idempotent: Sanitize(Sanitize(x)) ==
// Sanitize(x) for every input.
func Sanitize(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")

	// A removal can expose material for another pass: stripping an
	// inline tag may splice a new tag together or uncover a thinking
	// line. The passes only ever remove characters, so repeating them
	// until nothing changes terminates and reaches a fixpoint.
	for {
		next := stripThinkBlocks(s)
		next = thinkingLineRe.ReplaceAllString(next, "")
		next = strayTagRe.ReplaceAllString(next, "")
		next = strings.ReplaceAll(next, "```", "")
		if next == s {
			break
		}
		s = next
	}

	s = newlineRunRe.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	if s == "" {
		return EmptyAnswerApology
	}
	return s
}

// stripThinkBlocks removes every matched think block, innermost first,
// so nesting collapses correctly. It works from the first closing tag
// back to the nearest opening tag before it; a closing tag with no
// opener is dropped on its own, and an opener with no closer is left
// for the stray-tag pass, keeping the text after it.
func stripThinkBlocks(s string) string {
	for {
		closing := thinkCloseRe.FindStringIndex(s)
		if closing == nil {
			return s
		}
		opens := thinkOpenRe.FindAllStringIndex(s[:closing[0]], -1)
		if len(opens) == 0 {
			s = s[:closing[0]] + s[closing[1]:]
			continue
		}
		opening := opens[len(opens)-1]
		s = s[:opening[0]] + s[closing[1]:]
	}
}
