package usecase

import "github.com/cadvision/backend/internal/domain"

// Scoring weights. The enriched floor sits strictly above the maximum an
// inferred-only result can reach (0.15 + 0.15 + 0.35 + 0.10 + 0.05 + 0.05
// = 0.85), so a fiscal-verified result never scores below a purely
// inferred one.
const (
	enrichedFloor     = 0.93 // fiscal match is the dominant signal
	enrichedOCRWeight = 0.07

	inferredOCRWeight = 0.15
	codeChecksumBoost = 0.15 // valid code whose lookup found nothing
	logoBrandWeight   = 0.35
	textBrandWeight   = 0.25
	categoryWeight    = 0.10
	priceWeight       = 0.05
	titleWeight       = 0.05
)

// ScoreInput collects the per-field signals the scorer aggregates.
type ScoreInput struct {
	OCRMean       float64 // mean confidence of contributing OCR tokens
	CodeValid     bool    // a checksum-valid code was accepted
	FiscalMatched bool    // the fiscal catalog returned an authoritative record
	Inferred      *domain.InferredRecord
}

// ConfidenceScorer folds field-level confidences into one overall score.
type ConfidenceScorer struct{}

// NewConfidenceScorer creates a new confidence scorer
func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{}
}

// Score returns the overall confidence in [0,1].
func (s *ConfidenceScorer) Score(in ScoreInput) float64 {
	if in.FiscalMatched {
		return clamp01(enrichedFloor + enrichedOCRWeight*in.OCRMean)
	}

	score := inferredOCRWeight * in.OCRMean
	if in.CodeValid {
		score += codeChecksumBoost
	}
	if in.Inferred != nil {
		if in.Inferred.Brand != "" {
			if in.Inferred.BrandFromLogo {
				score += logoBrandWeight * in.Inferred.BrandConfidence
			} else {
				score += textBrandWeight * in.Inferred.BrandConfidence
			}
		}
		if in.Inferred.Category != "" {
			score += categoryWeight * in.Inferred.CategoryConfidence
		}
		if in.Inferred.Price != nil {
			score += priceWeight * in.Inferred.PriceConfidence
		}
		if in.Inferred.Title != "" {
			score += titleWeight * in.Inferred.TitleConfidence
		}
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
