// Package language implements the partial/final language-selection
// policy of §4.5, including the dual-run quality score used to choose
// between English and Turkish candidates when auto-detection is
// inconclusive.
package language

import (
	"strings"
	"unicode/utf8"
)

// trCommon and enCommon are the closed word lists from §4.5, used to
// compute hintBonus.
var trCommon = map[string]struct{}{
	"ve": {}, "bir": {}, "bu": {}, "ben": {}, "sen": {}, "için": {}, "değil": {},
	"şimdi": {}, "var": {}, "yok": {}, "ile": {}, "olan": {}, "gibi": {}, "kadar": {},
	"daha": {}, "çok": {}, "az": {}, "en": {}, "da": {}, "de": {}, "ki": {}, "mi": {},
	"mı": {}, "mu": {}, "mü": {},
}

var enCommon = map[string]struct{}{
	"the": {}, "and": {}, "is": {}, "are": {}, "to": {}, "of": {}, "in": {}, "for": {},
	"with": {}, "i": {}, "you": {}, "we": {}, "they": {}, "this": {}, "that": {},
	"have": {}, "has": {}, "had": {}, "was": {}, "were": {}, "been": {}, "be": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "can": {}, "could": {},
	"should": {}, "may": {}, "might": {},
}

// turkishLetters are the Turkish-specific characters counted for hintBonus.
const turkishLetters = "çğıöşü"

// QualityScore computes the §4.5 heuristic score for candidate text t,
// hinted at language hint ("en" or "tr").
func QualityScore(t string, hint string) int {
	words := strings.Fields(strings.ToLower(t))
	wordCount := len(words)
	if wordCount > 80 {
		wordCount = 80
	}

	maxRepeat := longestRepeatRun(words)
	repeatPen := 0
	if maxRepeat > 2 {
		repeatPen = 5 * maxRepeat
	}

	nonsensePen := 3 * countShortFrequentWords(words)

	hintBonus := 0
	switch hint {
	case "tr":
		hintBonus = 4*countTurkishChars(t) + 3*countMatches(words, trCommon)
	case "en":
		hintBonus = 1 * countMatches(words, enCommon)
	}

	return wordCount + hintBonus - repeatPen - nonsensePen
}

// longestRepeatRun returns the longest run of identical consecutive tokens.
func longestRepeatRun(words []string) int {
	if len(words) == 0 {
		return 0
	}
	longest := 1
	run := 1
	for i := 1; i < len(words); i++ {
		if words[i] == words[i-1] {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// countShortFrequentWords counts distinct words of length <= 2 that
// occur more than 3 times in words.
func countShortFrequentWords(words []string) int {
	counts := make(map[string]int)
	for _, w := range words {
		counts[w]++
	}
	n := 0
	for w, c := range counts {
		if utf8.RuneCountInString(w) <= 2 && c > 3 {
			n++
		}
	}
	return n
}

func countMatches(words []string, set map[string]struct{}) int {
	n := 0
	for _, w := range words {
		if _, ok := set[w]; ok {
			n++
		}
	}
	return n
}

func countTurkishChars(t string) int {
	n := 0
	lower := strings.ToLower(t)
	for _, r := range lower {
		if strings.ContainsRune(turkishLetters, r) {
			n++
		}
	}
	return n
}
