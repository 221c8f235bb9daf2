package usecase

import (
	"log"
	"strings"

	"github.com/cadvision/backend/internal/domain"
)

// Apparel attribute keys populated by the mapper.
const (
	AttrSize   = "size"
	AttrColor  = "color"
	AttrFabric = "fabric"
	AttrGender = "gender"
)

// Closed vocabularies for apparel tag attributes. An attribute whose token
// never appears stays empty; the mapper never guesses.
var (
	sizeVocabulary = map[string]string{
		"pp": "PP", "p": "P", "m": "M", "g": "G", "gg": "GG", "xg": "XG",
		"xgg": "XGG", "34": "34", "36": "36", "38": "38", "40": "40",
		"42": "42", "44": "44", "46": "46", "48": "48", "50": "50",
	}

	colorVocabulary = map[string]string{
		"branco": "Branco", "branca": "Branco", "preto": "Preto",
		"preta": "Preto", "azul": "Azul", "vermelho": "Vermelho",
		"vermelha": "Vermelho", "verde": "Verde", "amarelo": "Amarelo",
		"amarela": "Amarelo", "cinza": "Cinza", "rosa": "Rosa",
		"roxo": "Roxo", "laranja": "Laranja", "marrom": "Marrom",
		"bege": "Bege", "vinho": "Vinho",
	}

	fabricVocabulary = map[string]string{
		"algodão": "Algodão", "algodao": "Algodão", "poliéster": "Poliéster",
		"poliester": "Poliéster", "elastano": "Elastano", "viscose": "Viscose",
		"linho": "Linho", "lã": "Lã", "seda": "Seda", "jeans": "Jeans",
		"couro": "Couro",
	}

	genderVocabulary = map[string]string{
		"masculino": "Masculino", "masculina": "Masculino",
		"feminino": "Feminino", "feminina": "Feminino",
		"unissex": "Unissex", "infantil": "Infantil",
	}
)

// SchemaMapper routes extracted fields into the caller-selected vertical
// shape: retail-goods carries GTIN/NCM/CEST, apparel carries
// size/color/fabric/gender scanned from the tag text.
type SchemaMapper struct {
	enableDebugLogging bool
}

// NewSchemaMapper creates a new schema mapper
func NewSchemaMapper(enableDebugLogging bool) *SchemaMapper {
	return &SchemaMapper{enableDebugLogging: enableDebugLogging}
}

// Map assembles the vertical-specific identification result from whichever
// record backs this run. Enriched fields win over inferred ones; price is
// always inferred because the fiscal catalog carries no shelf price.
func (m *SchemaMapper) Map(
	vertical domain.Vertical,
	enriched *domain.EnrichedRecord,
	inferred *domain.InferredRecord,
	raw *domain.RawExtraction,
) *domain.IdentificationResult {
	result := &domain.IdentificationResult{Vertical: vertical}

	if inferred != nil {
		result.Title = inferred.Title
		result.Brand = inferred.Brand
		result.Category = inferred.Category
		result.Subcategory = inferred.Subcategory
		result.Price = inferred.Price
	}
	if enriched != nil {
		if enriched.Title != "" {
			result.Title = enriched.Title
		}
		if enriched.Brand != "" {
			result.Brand = enriched.Brand
		}
		if enriched.Category != "" {
			result.Category = enriched.Category
		}
		result.GTIN = enriched.GTIN
	}

	switch vertical {
	case domain.VerticalRetail:
		if enriched != nil {
			result.NCM = enriched.NCM
			result.CEST = enriched.CEST
		}
	case domain.VerticalApparel:
		// Tax classification codes are retail-goods fields; apparel
		// results never carry them even when the catalog returned them.
		result.NCM = ""
		result.CEST = ""
		result.Attributes = m.mapApparelAttributes(raw)
	}

	if m.enableDebugLogging {
		log.Printf("[MAP] vertical=%s title=%q gtin=%q attrs=%v",
			vertical, result.Title, result.GTIN, result.Attributes)
	}
	return result
}

// mapApparelAttributes scans tag text against the closed vocabularies.
// First token hit per attribute wins.
func (m *SchemaMapper) mapApparelAttributes(raw *domain.RawExtraction) map[string]string {
	if raw == nil {
		return nil
	}

	attrs := make(map[string]string)
	for _, tok := range raw.Tokens {
		for _, word := range tokenizeKeepShort(tok.Text) {
			if v, ok := sizeVocabulary[word]; ok && attrs[AttrSize] == "" {
				attrs[AttrSize] = v
			}
			if v, ok := colorVocabulary[word]; ok && attrs[AttrColor] == "" {
				attrs[AttrColor] = v
			}
			if v, ok := fabricVocabulary[word]; ok && attrs[AttrFabric] == "" {
				attrs[AttrFabric] = v
			}
			if v, ok := genderVocabulary[word]; ok && attrs[AttrGender] == "" {
				attrs[AttrGender] = v
			}
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// tokenizeKeepShort is tokenize without the length filter: apparel sizes
// ("P", "M", "G") are single characters and must survive.
func tokenizeKeepShort(s string) []string {
	return strings.Fields(normalizeLabel(s))
}
