package synthesis

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// quoteDashReplacer normalizes typographic characters the provider tends to
// mispronounce or reject.
var quoteDashReplacer = strings.NewReplacer(
	emDash, "-",
	enDash, "-",
	figureDash, "-",
	ellipsisChar, ellipsis,
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
)

// normalizeText prepares affirmation text for synthesis: collapses
// whitespace, normalizes quotes and dashes, and ensures a sentence-ending
// punctuation mark so the provider produces a natural closing intonation.
func normalizeText(text string) string {
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = quoteDashReplacer.Replace(text)

	return ensureSentenceEnding(strings.TrimSpace(text))
}

func ensureSentenceEnding(text string) string {
	if text == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(text)
	if !unicode.IsPunct(lastChar) {
		return text + "."
	}

	switch lastChar {
	case '.', '!', '?':
		return text
	default:
		return text + "."
	}
}

// chunkText splits text into contiguous ordered slices no longer than
// maxChars each, preferring word boundaries. Words longer than maxChars are
// hard-split. The concatenation of all chunks preserves the input's word
// sequence with single spaces.
func chunkText(text string, maxChars int) []string {
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, word := range strings.Fields(text) {
		// Hard-split on runes, never bytes, so a multi-byte character
		// cannot be cut in half.
		for utf8.RuneCountInString(word) > maxChars {
			flush()

			runes := []rune(word)
			chunks = append(chunks, string(runes[:maxChars]))
			word = string(runes[maxChars:])
		}

		if word == "" {
			continue
		}

		needed := len(word)
		if current.Len() > 0 {
			needed++ // joining space
		}

		if current.Len()+needed > maxChars {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}

		current.WriteString(word)
	}

	flush()

	if len(chunks) == 0 {
		return []string{""}
	}

	return chunks
}
