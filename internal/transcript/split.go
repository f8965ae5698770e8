package transcript

import (
	"regexp"
	"strings"
)

// sentenceBoundary matches the split pattern from §4.6: one or more of
// [.!?] followed by whitespace. The punctuation run and the whitespace
// run are captured as separate groups so the punctuation can stay with
// the preceding sentence while only the whitespace is consumed as the
// delimiter.
var sentenceBoundary = regexp.MustCompile(`([.!?]+)(\s+)`)

// Segment is one sentence-level transcript segment with proportional
// timestamps, prior to being tagged with a Note/session identity.
type Segment struct {
	StartMs int64
	EndMs   int64
	Text    string
	Lang    string
}

// Split breaks text into sentences per §4.6: split on sentenceBoundary,
// keeping trailing punctuation with the preceding sentence; any
// remainder after the last match is its own sentence; empty sentences
// are dropped; if nothing matches, the whole text is one sentence.
func Split(text string) []string {
	text = normalizeWhitespace(text)
	if text == "" {
		return nil
	}

	locs := sentenceBoundary.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	var sentences []string
	start := 0
	for _, loc := range locs {
		punctEnd, delimEnd := loc[3], loc[5]
		sentences = append(sentences, text[start:punctEnd])
		start = delimEnd
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	out := sentences[:0]
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DistributeTimestamps assigns proportional start/end timestamps to
// sentences given a total durationMs, per §4.6's running-remainder
// algorithm: len_i = floor(durationMs * |s_i| / total); each sentence's
// end is the running start plus its length, capped at durationMs.
func DistributeTimestamps(sentences []string, durationMs int64, lang string) []Segment {
	if len(sentences) == 0 {
		return nil
	}

	total := 0
	for _, s := range sentences {
		total += len([]rune(s))
	}
	if total == 0 {
		return nil
	}

	segments := make([]Segment, 0, len(sentences))
	var startMs int64
	for _, s := range sentences {
		charLen := int64(len([]rune(s)))
		lenMs := durationMs * charLen / int64(total)
		endMs := startMs + lenMs
		if endMs > durationMs {
			endMs = durationMs
		}
		segments = append(segments, Segment{
			StartMs: startMs,
			EndMs:   endMs,
			Text:    s,
			Lang:    NormalizeLang(lang),
		})
		startMs = endMs
	}
	return segments
}

// BuildSegments splits text and distributes timestamps over durationMs
// in one step, per §4.6.
func BuildSegments(text string, durationMs int64, lang string) []Segment {
	return DistributeTimestamps(Split(text), durationMs, lang)
}

// NormalizeLang collapses auto_en/auto_tr to en/tr and defaults to en,
// per §4.6: no auto_* language tag ever reaches storage.
func NormalizeLang(lang string) string {
	switch lang {
	case "auto_en":
		return "en"
	case "auto_tr":
		return "tr"
	case "en", "tr":
		return lang
	default:
		return "en"
	}
}
