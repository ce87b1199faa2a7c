// Package transcript normalizes recognized speech text before commit.
package transcript

import "strings"

// Options controls transcript normalization behavior. Abbreviations extends
// the built-in set of tokens whose trailing period does not end a sentence,
// so dictation like "approx. five" keeps its casing intact.
type Options struct {
	TrailingSpace       bool
	CapitalizeSentences bool
	Abbreviations       []string
}

// Normalizer applies the configured normalization rules to recognized text.
type Normalizer struct {
	opts            Options
	nonTerminal     map[string]boundaryClass
	lowercaseStarts map[string]struct{}
}

// New builds a normalizer from opts, folding any configured abbreviations
// into the built-in boundary set.
func New(opts Options) *Normalizer {
	n := &Normalizer{
		opts:            opts,
		nonTerminal:     make(map[string]boundaryClass, len(builtinBoundaryClasses)+len(opts.Abbreviations)),
		lowercaseStarts: builtinLowercaseStarts,
	}
	for token, class := range builtinBoundaryClasses {
		n.nonTerminal[token] = class
	}
	for _, token := range opts.Abbreviations {
		token = strings.ToLower(strings.Trim(strings.TrimSpace(token), "."))
		if token != "" {
			n.nonTerminal[token] = boundaryNonTerminal
		}
	}
	return n
}

// Assemble joins recognized text segments and applies the configured rules.
func (n *Normalizer) Assemble(finalSegments []string) string {
	if len(finalSegments) == 0 {
		return ""
	}

	joined := strings.Join(finalSegments, " ")
	normalized := strings.Join(strings.Fields(joined), " ")
	if normalized == "" {
		return ""
	}

	if n.opts.CapitalizeSentences {
		normalized = n.capitalizeSentenceStarts(normalized)
		normalized = capitalizePronounI(normalized)
	}

	if n.opts.TrailingSpace {
		return normalized + " "
	}
	return normalized
}

// Assemble is a one-shot convenience over New.
func Assemble(finalSegments []string, opts Options) string {
	return New(opts).Assemble(finalSegments)
}
