package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cadvision/backend/internal/domain"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleProduct(gtin string) *domain.Product {
	price := decimal.NewFromFloat(5.49)
	return &domain.Product{
		ID:          uuid.New(),
		Vertical:    domain.VerticalRetail,
		GTIN:        gtin,
		Title:       "Leite Integral UHT 1L",
		Brand:       "Itambé",
		Category:    "Laticínios",
		Subcategory: "Leites e Derivados",
		Price:       &price,
		NCM:         "0401.10.10",
		CEST:        "17.001.00",
		Confidence:  0.95,
	}
}

func TestSQLiteStore_SaveAndGetByID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := sampleProduct("7891234567895")
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Failed to save product: %v", err)
	}

	got, err := s.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to load product: %v", err)
	}
	if got.Title != p.Title {
		t.Errorf("Expected title %q, got %q", p.Title, got.Title)
	}
	if got.GTIN != p.GTIN {
		t.Errorf("Expected GTIN %q, got %q", p.GTIN, got.GTIN)
	}
	if got.Price == nil || !got.Price.Equal(*p.Price) {
		t.Errorf("Expected price %s, got %v", p.Price, got.Price)
	}
	if got.Vertical != domain.VerticalRetail {
		t.Errorf("Expected retail vertical, got %q", got.Vertical)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set on save")
	}
}

func TestSQLiteStore_SaveAttributesRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := sampleProduct("")
	p.Vertical = domain.VerticalApparel
	p.NCM = ""
	p.CEST = ""
	p.Attributes = map[string]string{"size": "M", "color": "Azul"}

	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Failed to save product: %v", err)
	}

	got, err := s.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to load product: %v", err)
	}
	if got.Attributes["size"] != "M" || got.Attributes["color"] != "Azul" {
		t.Errorf("Attributes did not survive the round trip: %v", got.Attributes)
	}
}

func TestSQLiteStore_Update(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := sampleProduct("7891234567895")
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Failed to save product: %v", err)
	}

	t.Run("overwrites fields in place", func(t *testing.T) {
		newPrice := decimal.NewFromFloat(6.29)
		p.Title = "Leite Integral UHT 1L Corrigido"
		p.Price = &newPrice
		if err := s.Update(ctx, p); err != nil {
			t.Fatalf("Failed to update product: %v", err)
		}

		got, err := s.GetByID(ctx, p.ID)
		if err != nil {
			t.Fatalf("Failed to load product: %v", err)
		}
		if got.Title != "Leite Integral UHT 1L Corrigido" {
			t.Errorf("Expected corrected title, got %q", got.Title)
		}
		if got.Price == nil || !got.Price.Equal(newPrice) {
			t.Errorf("Expected updated price, got %v", got.Price)
		}
		if got.CreatedAt.IsZero() {
			t.Error("Expected created_at preserved across updates")
		}
	})

	t.Run("missing record", func(t *testing.T) {
		ghost := sampleProduct("")
		if err := s.Update(ctx, ghost); !errors.Is(err, domain.ErrRecordNotFound) {
			t.Errorf("Expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("gtin collision with another record", func(t *testing.T) {
		other := sampleProduct("7891234567888")
		other.Title = "Outro Produto"
		if err := s.Save(ctx, other); err != nil {
			t.Fatalf("Failed to save second product: %v", err)
		}

		other.GTIN = p.GTIN
		if err := s.Update(ctx, other); !errors.Is(err, domain.ErrDuplicateGTIN) {
			t.Errorf("Expected ErrDuplicateGTIN, got %v", err)
		}
	})
}

func TestSQLiteStore_DuplicateGTIN(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, sampleProduct("7891234567895")); err != nil {
		t.Fatalf("Failed to save first product: %v", err)
	}

	err := s.Save(ctx, sampleProduct("7891234567895"))
	if !errors.Is(err, domain.ErrDuplicateGTIN) {
		t.Errorf("Expected ErrDuplicateGTIN, got %v", err)
	}
}

func TestSQLiteStore_EmptyGTINNotUnique(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Apparel items frequently have no GTIN; several may coexist.
	if err := s.Save(ctx, sampleProduct("")); err != nil {
		t.Fatalf("Failed to save first product: %v", err)
	}
	if err := s.Save(ctx, sampleProduct("")); err != nil {
		t.Errorf("Products without GTIN must not collide: %v", err)
	}
}

func TestSQLiteStore_FindByGTIN(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := sampleProduct("7891234567895")
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Failed to save product: %v", err)
	}

	got, err := s.FindByGTIN(ctx, "7891234567895")
	if err != nil {
		t.Fatalf("Failed to find product: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("Expected product %s, got %s", p.ID, got.ID)
	}

	if _, err := s.FindByGTIN(ctx, "0000000000000"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound for unknown GTIN, got %v", err)
	}
	if _, err := s.FindByGTIN(ctx, ""); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound for empty GTIN, got %v", err)
	}
}

func TestSQLiteStore_GetByID_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestSQLiteStore_List(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		p := sampleProduct(fmt.Sprintf("789123456789%d", i))
		p.Title = fmt.Sprintf("Produto %d", i)
		if i >= 3 {
			p.Category = "Bebidas"
			p.Brand = "Skol"
		}
		if err := s.Save(ctx, p); err != nil {
			t.Fatalf("Failed to save product %d: %v", i, err)
		}
	}

	t.Run("unfiltered returns everything", func(t *testing.T) {
		products, total, err := s.List(ctx, domain.ProductFilter{})
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if total != 5 || len(products) != 5 {
			t.Errorf("Expected 5 products, got total=%d len=%d", total, len(products))
		}
	})

	t.Run("category filter", func(t *testing.T) {
		products, total, err := s.List(ctx, domain.ProductFilter{Category: "Bebidas"})
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if total != 2 || len(products) != 2 {
			t.Errorf("Expected 2 beverages, got total=%d len=%d", total, len(products))
		}
	})

	t.Run("brand filter", func(t *testing.T) {
		_, total, err := s.List(ctx, domain.ProductFilter{Brand: "Skol"})
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if total != 2 {
			t.Errorf("Expected 2 Skol products, got %d", total)
		}
	})

	t.Run("pagination keeps total", func(t *testing.T) {
		products, total, err := s.List(ctx, domain.ProductFilter{Page: 2, PageSize: 2})
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if total != 5 {
			t.Errorf("Expected total 5 regardless of page, got %d", total)
		}
		if len(products) != 2 {
			t.Errorf("Expected page of 2, got %d", len(products))
		}
	})

	t.Run("name sort", func(t *testing.T) {
		products, _, err := s.List(ctx, domain.ProductFilter{Sort: "name"})
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if products[0].Title != "Produto 0" {
			t.Errorf("Expected alphabetical order, got %q first", products[0].Title)
		}
	})
}

func TestSQLiteStore_Delete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := sampleProduct("7891234567895")
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Failed to save product: %v", err)
	}

	if err := s.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Failed to delete product: %v", err)
	}
	if _, err := s.GetByID(ctx, p.ID); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("Expected product gone, got %v", err)
	}

	if err := s.Delete(ctx, p.ID); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound on double delete, got %v", err)
	}
}
