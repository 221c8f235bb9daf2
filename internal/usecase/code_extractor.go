package usecase

import (
	"log"
	"regexp"

	"github.com/cadvision/backend/internal/domain"
)

// Package-level compiled regex pattern for performance
var digitRunRegex = regexp.MustCompile(`\d+`)

// codeFamilies maps the supported barcode lengths to their family names
var codeFamilies = map[int]string{
	8:  "GTIN-8",
	12: "GTIN-12",
	13: "GTIN-13",
	14: "GTIN-14",
}

// CodeExtractor scans the optical token stream for barcode-like digit runs
// and validates them with the GTIN check digit.
type CodeExtractor struct {
	enableDebugLogging bool
}

// NewCodeExtractor creates a new code extractor
func NewCodeExtractor(enableDebugLogging bool) *CodeExtractor {
	return &CodeExtractor{enableDebugLogging: enableDebugLogging}
}

// Extract scans tokens in the order the optical adapter produced them and
// accepts the first checksum-valid candidate. This is deliberately a
// first-match policy, not a best-match search; duplicate valid codes in the
// same image are not deduplicated, only the first is used.
func (e *CodeExtractor) Extract(raw *domain.RawExtraction) domain.CodeBranch {
	for _, cand := range e.Candidates(raw) {
		if cand.Valid {
			if e.enableDebugLogging {
				log.Printf("[CODE] accepted %s %q (token %d)", cand.Family, cand.Digits, cand.TokenIndex)
			}
			return domain.ValidCode(cand)
		}
	}
	if e.enableDebugLogging {
		log.Printf("[CODE] no checksum-valid candidate found")
	}
	return domain.NoCode()
}

// Candidates returns every digit run of a supported length, in scan order.
// Barcode digits are often split across OCR tokens, so for each token the
// join with its immediate successor is scanned as well.
func (e *CodeExtractor) Candidates(raw *domain.RawExtraction) []domain.CandidateCode {
	if raw == nil {
		return nil
	}

	var out []domain.CandidateCode
	for i, tok := range raw.Tokens {
		for _, run := range digitRunRegex.FindAllString(tok.Text, -1) {
			if cand, ok := e.candidateFromRun(run, i); ok {
				out = append(out, cand)
			}
		}
		if i+1 < len(raw.Tokens) {
			joined := joinDigits(tok.Text) + joinDigits(raw.Tokens[i+1].Text)
			// Only a run formed by the join itself is new information;
			// runs fully contained in either token were already scanned.
			if cand, ok := e.candidateFromRun(joined, i); ok && spansBothTokens(tok.Text, joined) {
				out = append(out, cand)
			}
		}
	}
	return out
}

func (e *CodeExtractor) candidateFromRun(run string, tokenIndex int) (domain.CandidateCode, bool) {
	family, supported := codeFamilies[len(run)]
	if !supported {
		return domain.CandidateCode{}, false
	}
	cand := domain.CandidateCode{
		Digits:     run,
		Family:     family,
		Valid:      ValidateChecksum(run),
		TokenIndex: tokenIndex,
	}
	if e.enableDebugLogging {
		log.Printf("[CODE] candidate %s %q valid=%t", cand.Family, cand.Digits, cand.Valid)
	}
	return cand, true
}

// joinDigits strips everything but digits from a token.
func joinDigits(s string) string {
	runs := digitRunRegex.FindAllString(s, -1)
	joined := ""
	for _, r := range runs {
		joined += r
	}
	return joined
}

// spansBothTokens reports whether a joined run actually uses digits from
// both tokens, i.e. the first token alone could not produce it.
func spansBothTokens(first, joined string) bool {
	own := joinDigits(first)
	return len(own) > 0 && len(own) < len(joined)
}

// ValidateChecksum applies the standard GTIN weighted modulo-10 formula:
// weights 3,1,3,... over the body digits taken right to left, check digit
// equals (10 - sum mod 10) mod 10.
func ValidateChecksum(digits string) bool {
	if _, supported := codeFamilies[len(digits)]; !supported {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}

	check := int(digits[len(digits)-1] - '0')
	body := digits[:len(digits)-1]

	sum := 0
	weight := 3
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		if weight == 3 {
			weight = 1
		} else {
			weight = 3
		}
	}

	return (10-sum%10)%10 == check
}
