package usecase

import (
	"log"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cadvision/backend/internal/domain"
)

// Confidence assigned to fields the engine reconstructs from noisy signals.
// These are deliberately lower than anything code-verified: an inferred
// field surfaces as a guess, never as a fact.
const (
	textBrandConfidence   = 0.60 // fuzzy text match against the brand dictionary
	categoryConfidence    = 0.70 // keyword table hit
	symbolPriceConfidence = 0.70 // decimal adjacent to a currency symbol
	barePriceConfidence   = 0.40 // bare decimal, no symbol nearby
	minTitleLineLength    = 6    // shorter lines are codes/weights, not titles
)

// Price pattern variants: Brazilian labels print "R$ 12,99", "12,99" or "12.99".
var (
	symbolPriceRegex = regexp.MustCompile(`(?i)R\$\s*(\d{1,5}[.,]\d{2})\b`)
	barePriceRegex   = regexp.MustCompile(`\b(\d{1,5}[.,]\d{2})\b`)
)

// knownBrands maps normalized labels to canonical brand names. Logo hits
// resolve through this table first; text tokens are fuzzy-matched against
// it as a fallback.
var knownBrands = map[string]string{
	"nestle":      "Nestlé",
	"coca cola":   "Coca-Cola",
	"coca":        "Coca-Cola",
	"sadia":       "Sadia",
	"perdigao":    "Perdigão",
	"itambe":      "Itambé",
	"piracanjuba": "Piracanjuba",
	"ype":         "Ypê",
	"omo":         "Omo",
	"colgate":     "Colgate",
	"seara":       "Seara",
	"tio joao":    "Tio João",
	"camil":       "Camil",
	"uniao":       "União",
	"pilao":       "Pilão",
	"melitta":     "Melitta",
	"skol":        "Skol",
	"brahma":      "Brahma",
	"antarctica":  "Antarctica",
	"fini":        "Fini",
	"bauducco":    "Bauducco",
	"vigor":       "Vigor",
	"danone":      "Danone",
	"garoto":      "Garoto",
	"lacta":       "Lacta",
	"ambev":       "Ambev",
	"heineken":    "Heineken",
	"hering":      "Hering",
	"malwee":      "Malwee",
	"renner":      "Renner",
	"riachuelo":   "Riachuelo",
	"lupo":        "Lupo",
	"havaianas":   "Havaianas",
}

// categoryEntry binds a retail category (and its subcategory) to the
// keywords that signal it. Entries are ordered; the first match wins.
type categoryEntry struct {
	Category    string
	Subcategory string
	Keywords    []string
}

var categoryTable = []categoryEntry{
	{"Laticínios", "Leites e Derivados", []string{"leite", "queijo", "iogurte", "manteiga", "requeijão", "requeijao"}},
	{"Alimentos", "Mercearia", []string{"arroz", "feijão", "feijao", "açúcar", "acucar", "café", "cafe", "óleo", "oleo", "macarrão", "macarrao", "farinha", "biscoito", "gelatina"}},
	{"Bebidas", "Bebidas", []string{"refrigerante", "suco", "água", "agua", "cerveja", "vinho", "energético", "energetico"}},
	{"Limpeza", "Produtos de Limpeza", []string{"sabão", "sabao", "detergente", "amaciante", "sanitária", "sanitaria", "desinfetante"}},
	{"Higiene", "Higiene Pessoal", []string{"shampoo", "sabonete", "dental", "desodorante"}},
	{"Vestuário", "Roupas", []string{"camisa", "camiseta", "calça", "calca", "vestido", "bermuda", "blusa", "casaco", "meia", "jaqueta", "saia"}},
}

// InferenceConfig holds configuration for the inference engine
type InferenceConfig struct {
	EnableFuzzyMatching bool
	FuzzyEditDistance   int
	EnableDebugLogging  bool
}

// InferenceEngine reconstructs plausible product identity from noisy
// OCR/logo signals when no checksum-valid code exists.
type InferenceEngine struct {
	enableFuzzyMatching bool
	fuzzyEditDistance   int
	enableDebugLogging  bool
}

// NewInferenceEngine creates a new inference engine with the given configuration
func NewInferenceEngine(config InferenceConfig) *InferenceEngine {
	fuzzyDist := config.FuzzyEditDistance
	if fuzzyDist <= 0 {
		fuzzyDist = 1 // Default edit distance of 1
	}
	return &InferenceEngine{
		enableFuzzyMatching: config.EnableFuzzyMatching,
		fuzzyEditDistance:   fuzzyDist,
		enableDebugLogging:  config.EnableDebugLogging,
	}
}

// Infer runs the full heuristic pass: brand (logo dictionary first, fuzzy
// text second), category (keyword table, first match wins), title (longest
// non-boilerplate line), price (currency pattern scan).
func (e *InferenceEngine) Infer(raw *domain.RawExtraction) *domain.InferredRecord {
	rec := &domain.InferredRecord{}
	if raw == nil {
		return rec
	}

	e.inferBrand(raw, rec)
	e.inferCategory(raw, rec)
	e.inferTitle(raw, rec)
	e.inferPrice(raw, rec)

	if e.enableDebugLogging {
		log.Printf("[INFER] brand=%q (logo=%t, %.2f) category=%q title=%q",
			rec.Brand, rec.BrandFromLogo, rec.BrandConfidence, rec.Category, rec.Title)
	}
	return rec
}

// inferBrand takes the detection engine's logo labels as the primary
// brand signal. The dictionary canonicalizes labels it knows; a label
// it has never seen is still a detected brand and is kept verbatim.
// Dictionary hits outrank unresolved labels regardless of confidence.
// With no logos at all, brand names are fuzzy-matched against the
// token stream.
func (e *InferenceEngine) inferBrand(raw *domain.RawExtraction, rec *domain.InferredRecord) {
	best := domain.LogoHint{}
	bestName := ""
	unresolved := domain.LogoHint{}
	for _, logo := range raw.Logos {
		if name, ok := knownBrands[normalizeLabel(logo.Label)]; ok {
			if logo.Confidence > best.Confidence {
				best = logo
				bestName = name
			}
			continue
		}
		if logo.Label != "" && logo.Confidence > unresolved.Confidence {
			unresolved = logo
		}
	}
	if bestName == "" && unresolved.Label != "" {
		best = unresolved
		bestName = unresolved.Label
	}
	if bestName != "" {
		rec.Brand = bestName
		rec.BrandConfidence = best.Confidence
		rec.BrandFromLogo = true
		return
	}

	// Fallback: fuzzy-match brand names against the token stream.
	tokens := raw.Tokens
	for _, tok := range tokens {
		for _, word := range tokenize(tok.Text) {
			if name, ok := e.matchBrandToken(word); ok {
				rec.Brand = name
				rec.BrandConfidence = textBrandConfidence * tok.Confidence
				return
			}
		}
	}
}

func (e *InferenceEngine) matchBrandToken(word string) (string, bool) {
	if name, ok := knownBrands[word]; ok {
		return name, true
	}
	if !e.enableFuzzyMatching {
		return "", false
	}
	for key, name := range knownBrands {
		if fuzzyTokenMatch(word, key, e.fuzzyEditDistance) {
			return name, true
		}
	}
	return "", false
}

// inferCategory keyword-matches token text against the category table.
// First table entry with a hit wins; no hit leaves category empty.
func (e *InferenceEngine) inferCategory(raw *domain.RawExtraction, rec *domain.InferredRecord) {
	words := make(map[string]bool)
	for _, tok := range raw.Tokens {
		for _, w := range tokenize(tok.Text) {
			words[w] = true
		}
	}

	for _, entry := range categoryTable {
		for _, kw := range entry.Keywords {
			if words[kw] {
				rec.Category = entry.Category
				rec.Subcategory = entry.Subcategory
				rec.CategoryConfidence = categoryConfidence
				return
			}
		}
	}
}

// inferTitle picks the longest reconstructed line that survives the
// boilerplate filter, with the brand stripped so it is not mistaken for
// the title.
func (e *InferenceEngine) inferTitle(raw *domain.RawExtraction, rec *domain.InferredRecord) {
	var best extractionLine
	for _, line := range reconstructLines(raw) {
		text := line.Text
		if rec.Brand != "" {
			text = removeCaseInsensitive(text, rec.Brand)
		}
		text = strings.TrimSpace(text)
		if len(text) < minTitleLineLength || !hasLetters(text) || isBoilerplateLine(text) {
			continue
		}
		if len(text) > len(best.Text) {
			best = extractionLine{Text: text, Confidence: line.Confidence}
		}
	}
	if best.Text != "" {
		rec.Title = cleanText(best.Text)
		rec.TitleConfidence = best.Confidence
	}
}

// inferPrice scans for currency-formatted decimals. A decimal sitting next
// to a currency symbol is preferred; otherwise the largest well-formed
// decimal wins. Either way this is a guess and is scored as one.
func (e *InferenceEngine) inferPrice(raw *domain.RawExtraction, rec *domain.InferredRecord) {
	var fullText strings.Builder
	for _, line := range reconstructLines(raw) {
		fullText.WriteString(line.Text)
		fullText.WriteString("\n")
	}
	text := fullText.String()

	if m := symbolPriceRegex.FindStringSubmatch(text); m != nil {
		if price, ok := parsePrice(m[1]); ok {
			rec.Price = &price
			rec.PriceConfidence = symbolPriceConfidence
			return
		}
	}

	var largest *decimal.Decimal
	for _, m := range barePriceRegex.FindAllStringSubmatch(text, -1) {
		price, ok := parsePrice(m[1])
		if !ok {
			continue
		}
		if largest == nil || price.GreaterThan(*largest) {
			largest = &price
		}
	}
	if largest != nil {
		rec.Price = largest
		rec.PriceConfidence = barePriceConfidence
	}
}

func parsePrice(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || d.IsZero() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// removeCaseInsensitive strips the first occurrence of needle from s,
// ignoring case.
func removeCaseInsensitive(s, needle string) string {
	idx := strings.Index(strings.ToLower(s), strings.ToLower(needle))
	if idx < 0 {
		return s
	}
	return s[:idx] + s[idx+len(needle):]
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to tokens > 4 chars to avoid false positives
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}

	// Quick length check - if lengths differ by more than threshold, can't match
	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
