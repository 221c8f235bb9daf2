package fiscal

import (
	"strings"

	"github.com/cadvision/backend/internal/domain"
)

// gtinResponse mirrors the Cosmos catalog wire format for a GTIN lookup
type gtinResponse struct {
	Description string `json:"description"`
	Brand       *struct {
		Name string `json:"name"`
	} `json:"brand"`
	NCM *struct {
		Code string `json:"code"`
	} `json:"ncm"`
	CEST *struct {
		Code string `json:"code"`
	} `json:"cest"`
	Category *struct {
		Description string `json:"description"`
	} `json:"gpc"`
}

// mapRecord converts a catalog response into the domain record. Cosmos
// descriptions come back fully upper-cased, so they are title-cased here.
func mapRecord(code string, wire *gtinResponse) *domain.EnrichedRecord {
	rec := &domain.EnrichedRecord{
		GTIN:   code,
		Title:  cleanDescription(wire.Description),
		Source: "cosmos",
	}
	if wire.Brand != nil {
		rec.Brand = cleanDescription(wire.Brand.Name)
	}
	if wire.NCM != nil {
		rec.NCM = strings.TrimSpace(wire.NCM.Code)
	}
	if wire.CEST != nil {
		rec.CEST = strings.TrimSpace(wire.CEST.Code)
	}
	if wire.Category != nil {
		rec.Category = cleanDescription(wire.Category.Description)
	}
	return rec
}

func cleanDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if s == strings.ToUpper(s) {
		words := strings.Fields(strings.ToLower(s))
		for i, w := range words {
			if len(w) > 2 {
				words[i] = strings.ToUpper(w[:1]) + w[1:]
			} else {
				// Short tokens are units ("1L", "ML"); keep them upper.
				words[i] = strings.ToUpper(w)
			}
		}
		return strings.Join(words, " ")
	}
	return s
}
