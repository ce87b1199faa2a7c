package transcript

import (
	"strings"
	"unicode"
)

// boundaryClass describes how a token behaves when a period follows it.
type boundaryClass uint8

const (
	// boundaryNonTerminal tokens never end a sentence at their period.
	boundaryNonTerminal boundaryClass = iota
	// boundaryAmbiguous tokens end a sentence only when the following text
	// reads like a fresh sentence.
	boundaryAmbiguous
)

var (
	// builtinLowercaseStarts should stay lowercase even at sentence starts.
	builtinLowercaseStarts = map[string]struct{}{
		"e.g": {},
		"etc": {},
		"i.e": {},
		"vs":  {},
	}

	// builtinBoundaryClasses classifies tokens that frequently appear before
	// a non-terminal period. Options.Abbreviations adds to this set.
	builtinBoundaryClasses = map[string]boundaryClass{
		// Latin/editorial abbreviations.
		"e.g": boundaryNonTerminal,
		"i.e": boundaryNonTerminal,
		"cf":  boundaryNonTerminal,
		"etc": boundaryAmbiguous,
		"vs":  boundaryAmbiguous,

		// Titles/honorifics.
		"dr":   boundaryNonTerminal,
		"mr":   boundaryNonTerminal,
		"mrs":  boundaryNonTerminal,
		"ms":   boundaryNonTerminal,
		"prof": boundaryNonTerminal,
		"sr":   boundaryNonTerminal,
		"jr":   boundaryNonTerminal,

		// Reference markers.
		"ch":  boundaryNonTerminal,
		"eq":  boundaryNonTerminal,
		"fig": boundaryNonTerminal,
		"ref": boundaryNonTerminal,
		"sec": boundaryNonTerminal,

		// Units/time abbreviations frequently used in dictation.
		"hr":   boundaryNonTerminal,
		"hrs":  boundaryNonTerminal,
		"lb":   boundaryNonTerminal,
		"lbs":  boundaryNonTerminal,
		"min":  boundaryNonTerminal,
		"mins": boundaryNonTerminal,
		"oz":   boundaryNonTerminal,
		"tbsp": boundaryNonTerminal,
		"tsp":  boundaryNonTerminal,
	}

	// lowercaseBoundaryPromoters captures lowercase words that strongly
	// indicate a sentence boundary after ambiguous abbreviations or
	// initialisms. Kept intentionally narrow to avoid false positives like
	// `etc. and` or `u.s. and`.
	lowercaseBoundaryPromoters = map[string]struct{}{
		"finally":   {},
		"however":   {},
		"meanwhile": {},
		"next":      {},
		"then":      {},
		"therefore": {},
	}

	pronounBoundaryPromoters = map[string]struct{}{
		"he":   {},
		"i":    {},
		"it":   {},
		"she":  {},
		"they": {},
		"we":   {},
		"you":  {},
	}

	locativePrepositions = map[string]struct{}{
		"across":     {},
		"around":     {},
		"at":         {},
		"from":       {},
		"in":         {},
		"inside":     {},
		"near":       {},
		"outside":    {},
		"through":    {},
		"throughout": {},
		"to":         {},
		"within":     {},
	}
)

// isSentenceBoundaryPeriod decides whether the period at idx ends a sentence.
func (n *Normalizer) isSentenceBoundaryPeriod(runes []rune, idx int) bool {
	if idx < 0 || idx >= len(runes) || runes[idx] != '.' {
		return false
	}

	if isDecimalPeriod(runes, idx) || isEmbeddedPeriodToken(runes, idx) {
		return false
	}

	token := strings.ToLower(tokenBeforePeriod(runes, idx))
	if token == "" {
		return true
	}
	if class, ok := n.nonTerminal[token]; ok {
		if class == boundaryNonTerminal {
			return false
		}
		return readsLikeBoundary(runes, idx, token)
	}

	if looksLikeInitialismToken(token) {
		return readsLikeBoundary(runes, idx, token)
	}

	return true
}

func isDecimalPeriod(runes []rune, idx int) bool {
	if idx <= 0 || idx+1 >= len(runes) {
		return false
	}
	return unicode.IsDigit(runes[idx-1]) && unicode.IsDigit(runes[idx+1])
}

func isEmbeddedPeriodToken(runes []rune, idx int) bool {
	if idx+1 >= len(runes) {
		return false
	}

	next := runes[idx+1]
	return unicode.IsLetter(next) || unicode.IsDigit(next) || next == '.'
}

// readsLikeBoundary resolves an ambiguous abbreviation or initialism period
// by looking at what follows it.
func readsLikeBoundary(runes []rune, idx int, token string) bool {
	nextWordStart := nextWordStartAfter(runes, idx+1)
	if nextWordStart < 0 {
		return true
	}
	if unicode.IsUpper(runes[nextWordStart]) {
		return true
	}

	nextWord := strings.ToLower(wordFromIndex(runes, nextWordStart))
	if _, ok := lowercaseBoundaryPromoters[nextWord]; ok {
		return true
	}
	if _, ok := pronounBoundaryPromoters[nextWord]; !ok {
		return false
	}
	if looksLikeInitialismToken(token) && isLikelyLocativeInitialismContinuation(runes, idx) {
		return false
	}
	return true
}

func wordFromIndex(runes []rune, idx int) string {
	if idx < 0 || idx >= len(runes) {
		return ""
	}

	end := idx
	for end < len(runes) {
		if unicode.IsLetter(runes[end]) {
			end++
			continue
		}
		break
	}

	return string(runes[idx:end])
}

func nextWordStartAfter(runes []rune, start int) int {
	for i := start; i < len(runes); i++ {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			continue
		case isSentencePrefixRune(r):
			continue
		case unicode.IsLetter(r):
			return i
		default:
			return -1
		}
	}
	return -1
}

// isLikelyLocativeInitialismContinuation spots phrases like "in the u.s. we"
// where the initialism is an object of a sentence-leading preposition and the
// pronoun continues the same sentence.
func isLikelyLocativeInitialismContinuation(runes []rune, idx int) bool {
	tokenStart := tokenStartBefore(runes, idx)
	if tokenStart < 0 {
		return false
	}

	prevWord, prevStart := previousWordBeforeIndex(runes, tokenStart)
	if prevWord == "" {
		return false
	}
	if _, ok := locativePrepositions[prevWord]; ok {
		return isSentenceLeadingWord(runes, prevStart)
	}

	if !isArticleWord(prevWord) || prevStart <= 0 {
		return false
	}

	prepositionWord, prepositionStart := previousWordBeforeIndex(runes, prevStart)
	if _, ok := locativePrepositions[prepositionWord]; !ok {
		return false
	}
	return isSentenceLeadingWord(runes, prepositionStart)
}

func tokenStartBefore(runes []rune, idx int) int {
	if idx <= 0 || idx >= len(runes) {
		return -1
	}

	start := idx - 1
	for start >= 0 {
		if r := runes[start]; unicode.IsLetter(r) || r == '.' {
			start--
			continue
		}
		break
	}

	return start + 1
}

func previousWordBeforeIndex(runes []rune, idx int) (string, int) {
	if idx <= 0 || idx > len(runes) {
		return "", -1
	}

	i := idx - 1
	for i >= 0 && !unicode.IsLetter(runes[i]) {
		i--
	}
	if i < 0 {
		return "", -1
	}

	end := i + 1
	for i >= 0 && unicode.IsLetter(runes[i]) {
		i--
	}
	start := i + 1
	return strings.ToLower(string(runes[start:end])), start
}

func isArticleWord(word string) bool {
	switch word {
	case "a", "an", "the":
		return true
	default:
		return false
	}
}

func isSentenceLeadingWord(runes []rune, wordStart int) bool {
	if wordStart <= 0 {
		return true
	}

	i := wordStart - 1
	for i >= 0 {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i--
			continue
		case isSentencePrefixRune(r):
			i--
			continue
		}
		break
	}

	if i < 0 {
		return true
	}
	switch runes[i] {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}

func tokenBeforePeriod(runes []rune, idx int) string {
	if idx <= 0 || idx >= len(runes) {
		return ""
	}

	start := idx - 1
	for start >= 0 {
		if r := runes[start]; unicode.IsLetter(r) || r == '.' {
			start--
			continue
		}
		break
	}

	return strings.Trim(string(runes[start+1:idx]), ".")
}

func looksLikeInitialismToken(token string) bool {
	if !strings.ContainsRune(token, '.') {
		return false
	}

	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return false
	}

	for _, part := range parts {
		runes := []rune(part)
		if len(runes) != 1 || !unicode.IsLetter(runes[0]) {
			return false
		}
	}

	return true
}
