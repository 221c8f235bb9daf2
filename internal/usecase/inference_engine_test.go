package usecase

import (
	"testing"

	"github.com/cadvision/backend/internal/domain"
)

func TestInfer_EmptyExtraction(t *testing.T) {
	e := NewInferenceEngine(InferenceConfig{})

	testCases := []struct {
		name string
		raw  *domain.RawExtraction
	}{
		{"nil extraction", nil},
		{"no signals", &domain.RawExtraction{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.Infer(tc.raw)
			if rec == nil {
				t.Fatal("expected a record, got nil")
			}
			if rec.Brand != "" || rec.Category != "" || rec.Title != "" || rec.Price != nil {
				t.Errorf("expected empty record, got %+v", rec)
			}
		})
	}
}

func TestInferBrand_LogoBeatsText(t *testing.T) {
	e := NewInferenceEngine(InferenceConfig{EnableFuzzyMatching: true})

	raw := &domain.RawExtraction{
		Tokens: []domain.TextToken{
			{Text: "sadia", Confidence: 0.95, Line: 1},
		},
		Logos: []domain.LogoHint{
			{Label: "Nestle", Confidence: 0.90},
		},
	}

	rec := e.Infer(raw)
	if rec.Brand != "Nestlé" {
		t.Errorf("expected logo brand Nestlé, got %q", rec.Brand)
	}
	if !rec.BrandFromLogo {
		t.Error("expected brand to come from logo")
	}
	if rec.BrandConfidence != 0.90 {
		t.Errorf("expected logo confidence 0.90, got %.2f", rec.BrandConfidence)
	}
}

func TestInferBrand_HighestConfidenceLogoWins(t *testing.T) {
	e := NewInferenceEngine(InferenceConfig{})

	// The unresolved label outscores both dictionary hits, but a
	// canonicalized brand is still preferred over a raw label.
	raw := &domain.RawExtraction{
		Logos: []domain.LogoHint{
			{Label: "Sadia", Confidence: 0.55},
			{Label: "Nestle", Confidence: 0.88},
			{Label: "MarcaDesconhecida", Confidence: 0.99},
		},
	}

	rec := e.Infer(raw)
	if rec.Brand != "Nestlé" {
		t.Errorf("expected Nestlé, got %q", rec.Brand)
	}
	if rec.BrandConfidence != 0.88 {
		t.Errorf("expected the winning logo's confidence, got %.2f", rec.BrandConfidence)
	}
}

func TestInferBrand_UnresolvedLogoKeptVerbatim(t *testing.T) {
	e := NewInferenceEngine(InferenceConfig{})

	raw := &domain.RawExtraction{
		Logos: []domain.LogoHint{
			{Label: "MarcaX", Confidence: 0.90},
			{Label: "MarcaY", Confidence: 0.40},
		},
	}

	rec := e.Infer(raw)
	if rec.Brand != "MarcaX" {
		t.Errorf("expected the detected label kept as brand, got %q", rec.Brand)
	}
	if !rec.BrandFromLogo {
		t.Error("expected brand flagged as logo-backed")
	}
	if rec.BrandConfidence != 0.90 {
		t.Errorf("expected detection confidence 0.90, got %.2f", rec.BrandConfidence)
	}
}

func TestInferBrand_TextFallback(t *testing.T) {
	e := NewInferenceEngine(InferenceConfig{EnableFuzzyMatching: true, FuzzyEditDistance: 1})

	testCases := []struct {
		name  string
		token string
		want  string
	}{
		{"exact dictionary hit", "sadia", "Sadia"},
		{"ocr typo within edit distance", "piracanjuda", "Piracanjuba"},
		{"unknown brand", "marcaignota", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := &domain.RawExtraction{
				Tokens: []domain.TextToken{{Text: tc.token, Confidence: 0.80, Line: 1}},
			}
			rec := e.Infer(raw)
			if rec.Brand != tc.want {
				t.Errorf("expected brand %q, got %q", tc.want, rec.Brand)
			}
			if tc.want != "" && rec.BrandFromLogo {
				t.Error("text match must not be flagged as logo")
			}
		})
	}
}

func TestInferBrand_FuzzyDisabled(t *testing.T) {
	e := NewInferenceEngine(InferenceConfig{EnableFuzzyMatching: false})

	raw := &domain.RawExtraction{
		Tokens: []domain.TextToken{{Text: "piracanjuda", Confidence: 0.80, Line: 1}},
	}

	rec := e.Infer(raw)
	if rec.Brand != "" {
		t.Errorf("expected no brand with fuzzy disabled, got %q", rec.Brand)
	}
}

func TestInferCategory(t *testing.T) {
	e := NewInferenceEngine(InferenceConfig{})

	testCases := []struct {
		name        string
		text        string
		category    string
		subcategory string
	}{
		{"dairy keyword", "Leite Integral UHT", "Laticínios", "Leites e Derivados"},
		{"grocery keyword", "Arroz Branco Tipo 1", "Alimentos", "Mercearia"},
		{"beverage keyword", "Cerveja Pilsen", "Bebidas", "Bebidas"},
		{"cleaning keyword", "Detergente Neutro", "Limpeza", "Produtos de Limpeza"},
		{"apparel keyword", "Camiseta Básica", "Vestuário", "Roupas"},
		{"no keyword", "Produto Misterioso", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := &domain.RawExtraction{
				Tokens: []domain.TextToken{{Text: tc.text, Confidence: 0.85, Line: 1}},
			}
			rec := e.Infer(raw)
			if rec.Category != tc.category {
				t.Errorf("expected category %q, got %q", tc.category, rec.Category)
			}
			if rec.Subcategory != tc.subcategory {
				t.Errorf("expected subcategory %q, got %q", tc.subcategory, rec.Subcategory)
			}
		})
	}
}

func TestInferCategory_TableOrderWins(t *testing.T) {
	e := NewInferenceEngine(InferenceConfig{})

	// Both a dairy and a beverage keyword are present; the table is
	// ordered and dairy comes first.
	raw := &domain.RawExtraction{
		Tokens: []domain.TextToken{
			{Text: "cerveja", Confidence: 0.85, Line: 1},
			{Text: "leite", Confidence: 0.85, Line: 2},
		},
	}

	rec := e.Infer(raw)
	if rec.Category != "Laticínios" {
		t.Errorf("expected first table entry Laticínios, got %q", rec.Category)
	}
}

func TestInferTitle(t *testing.T) {
	e := NewInferenceEngine(InferenceConfig{})

	raw := &domain.RawExtraction{
		Tokens: []domain.TextToken{
			{Text: "LEITE", Confidence: 0.92, Line: 1, Column: 1},
			{Text: "INTEGRAL", Confidence: 0.90, Line: 1, Column: 2},
			{Text: "UHT", Confidence: 0.88, Line: 1, Column: 3},
			{Text: "Informação", Confidence: 0.95, Line: 2, Column: 1},
			{Text: "Nutricional", Confidence: 0.95, Line: 2, Column: 2},
			{Text: "1L", Confidence: 0.99, Line: 3, Column: 1},
		},
	}

	rec := e.Infer(raw)
	if rec.Title != "Leite Integral Uht" {
		t.Errorf("expected title from the longest clean line, got %q", rec.Title)
	}
	if rec.TitleConfidence <= 0 {
		t.Error("expected title confidence to be set")
	}
}

func TestInferTitle_StripsBrand(t *testing.T) {
	e := NewInferenceEngine(InferenceConfig{})

	raw := &domain.RawExtraction{
		Tokens: []domain.TextToken{
			{Text: "SADIA", Confidence: 0.90, Line: 1, Column: 1},
			{Text: "Frango", Confidence: 0.90, Line: 1, Column: 2},
			{Text: "Congelado", Confidence: 0.90, Line: 1, Column: 3},
		},
	}

	rec := e.Infer(raw)
	if rec.Brand != "Sadia" {
		t.Fatalf("expected brand Sadia, got %q", rec.Brand)
	}
	if rec.Title != "Frango Congelado" {
		t.Errorf("expected brand stripped from title, got %q", rec.Title)
	}
}

func TestInferPrice(t *testing.T) {
	e := NewInferenceEngine(InferenceConfig{})

	testCases := []struct {
		name           string
		text           string
		wantPrice      string
		wantConfidence float64
	}{
		{"currency symbol preferred", "R$ 12,99 ou 15,99", "12.99", symbolPriceConfidence},
		{"dot separator", "R$ 7.50", "7.5", symbolPriceConfidence},
		{"bare decimal picks largest", "500,00 g por 8,90", "500", barePriceConfidence},
		{"no price", "Leite Integral", "", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := &domain.RawExtraction{
				Tokens: []domain.TextToken{{Text: tc.text, Confidence: 0.9, Line: 1}},
			}
			rec := e.Infer(raw)

			if tc.wantPrice == "" {
				if rec.Price != nil {
					t.Errorf("expected no price, got %s", rec.Price)
				}
				return
			}
			if rec.Price == nil {
				t.Fatal("expected a price")
			}
			if rec.Price.String() != tc.wantPrice {
				t.Errorf("expected price %s, got %s", tc.wantPrice, rec.Price)
			}
			if rec.PriceConfidence != tc.wantConfidence {
				t.Errorf("expected price confidence %.2f, got %.2f", tc.wantConfidence, rec.PriceConfidence)
			}
		})
	}
}

func TestFuzzyTokenMatch(t *testing.T) {
	testCases := []struct {
		name      string
		a, b      string
		threshold int
		want      bool
	}{
		{"exact match", "nestle", "nestle", 1, true},
		{"one substitution", "nestla", "nestle", 1, true},
		{"two edits over threshold", "nastla", "nestle", 1, false},
		{"short tokens never fuzzy", "omo", "omo2", 1, false},
		{"length gap over threshold", "nestle", "nestlezinho", 1, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := fuzzyTokenMatch(tc.a, tc.b, tc.threshold); got != tc.want {
				t.Errorf("fuzzyTokenMatch(%q, %q, %d) = %v, want %v", tc.a, tc.b, tc.threshold, got, tc.want)
			}
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	testCases := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"kitten", "sitting", 3},
		{"açúcar", "acucar", 2},
	}

	for _, tc := range testCases {
		if got := levenshteinDistance(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
