package usecase

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/cadvision/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	punctuationRegex    = regexp.MustCompile(`[^\pL\pN\s]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)

// exclusionWords flags packaging boilerplate lines (ingredient lists,
// nutrition tables, storage instructions) that never contain the
// product title.
var exclusionWords = map[string]bool{
	"ingredientes": true, "contém": true, "contem": true, "glúten": true,
	"gluten": true, "lactose": true, "informação": true, "informacao": true,
	"nutricional": true, "validade": true, "fabricado": true, "lote": true,
	"peso": true, "líquido": true, "liquido": true, "neto": true,
	"indústria": true, "industria": true, "brasileira": true,
	"conservar": true, "agite": true, "usar": true, "manter": true,
	"ambiente": true, "congelar": true, "valor": true, "energético": true,
	"energetico": true, "diário": true, "diario": true, "valores": true,
	"referência": true, "referencia": true, "porção": true, "porcao": true,
}

// stopWords are short function words ignored when tokenizing for matching
var stopWords = map[string]bool{
	"a": true, "o": true, "as": true, "os": true, "de": true, "da": true,
	"do": true, "das": true, "dos": true, "e": true, "em": true, "na": true,
	"no": true, "com": true, "para": true, "por": true, "um": true,
	"uma": true, "ou": true, "ao": true, "à": true,
}

// tokenize splits a string into normalized lowercase tokens, dropping
// punctuation, stop words and very short fragments.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
	words := strings.Fields(cleaned)

	var tokens []string
	for _, word := range words {
		if len(word) <= 1 {
			continue
		}
		if stopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// normalizeLabel lowercases and strips punctuation from a brand/logo label
// so dictionary lookups are insensitive to OCR casing noise.
func normalizeLabel(s string) string {
	result := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// extractionLine is a reconstructed text line with the mean confidence of
// its contributing tokens.
type extractionLine struct {
	Text       string
	Confidence float64
}

// reconstructLines groups tokens by their source line, preserving the
// adapter's top-to-bottom order.
func reconstructLines(raw *domain.RawExtraction) []extractionLine {
	if raw == nil || len(raw.Tokens) == 0 {
		return nil
	}

	byLine := make(map[int][]domain.TextToken)
	var order []int
	for _, tok := range raw.Tokens {
		if _, seen := byLine[tok.Line]; !seen {
			order = append(order, tok.Line)
		}
		byLine[tok.Line] = append(byLine[tok.Line], tok)
	}
	sort.Ints(order)

	lines := make([]extractionLine, 0, len(order))
	for _, ln := range order {
		toks := byLine[ln]
		sort.Slice(toks, func(i, j int) bool { return toks[i].Column < toks[j].Column })

		var parts []string
		sum := 0.0
		for _, t := range toks {
			parts = append(parts, t.Text)
			sum += t.Confidence
		}
		lines = append(lines, extractionLine{
			Text:       strings.Join(parts, " "),
			Confidence: sum / float64(len(toks)),
		})
	}
	return lines
}

// isBoilerplateLine reports whether a line looks like packaging boilerplate
// rather than a title candidate.
func isBoilerplateLine(line string) bool {
	for _, word := range strings.Fields(strings.ToLower(line)) {
		trimmed := punctuationRegex.ReplaceAllString(word, "")
		if exclusionWords[trimmed] {
			return true
		}
	}
	return false
}

// hasLetters reports whether a line contains at least one letter; pure
// numeric lines (barcodes, weights) are never titles.
func hasLetters(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// cleanText normalizes OCR shouting: all-caps words become title case,
// whitespace is collapsed.
func cleanText(text string) string {
	text = multipleSpacesRegex.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	words := strings.Fields(text)
	for i, word := range words {
		if len(word) > 1 && word == strings.ToUpper(word) && hasLetters(word) {
			words[i] = titleCase(word)
		}
	}
	return strings.Join(words, " ")
}

func titleCase(word string) string {
	lower := strings.ToLower(word)
	r := []rune(lower)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// ocrMeanConfidence averages token confidences across the whole
// extraction. Tokens that end up contributing to the final fields are
// not tracked individually; the whole-extraction mean stands in for
// them, and its weight in the scorer is kept small enough that the
// difference never moves a result across a tier boundary.
func ocrMeanConfidence(raw *domain.RawExtraction) float64 {
	if raw == nil || len(raw.Tokens) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range raw.Tokens {
		sum += t.Confidence
	}
	return sum / float64(len(raw.Tokens))
}
