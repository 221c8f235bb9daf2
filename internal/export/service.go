package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cadvision/backend/internal/domain"
)

var headers = []string{
	"ID",
	"GTIN/EAN",
	"Título do Produto",
	"Marca",
	"Categoria",
	"Subcategoria",
	"Preço (R$)",
	"NCM",
	"CEST",
	"Atributos",
	"Confiança",
	"Criado em",
}

// Service produces CSV and XLSX exports of the product catalog.
type Service struct {
	repo domain.ProductRepository
}

func NewService(repo domain.ProductRepository) *Service {
	return &Service{repo: repo}
}

// ExportCSV returns the full catalog as CSV bytes (matching filter).
func (s *Service) ExportCSV(ctx context.Context, filter domain.ProductFilter) ([]byte, error) {
	products, err := s.fetchAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}
	for _, p := range products {
		if err := w.Write(productRow(p)); err != nil {
			return nil, fmt.Errorf("csv write: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}

	log.Printf("[EXPORT] csv done - rows: %d", len(products))
	return buf.Bytes(), nil
}

// ExportXLSX returns the full catalog as an XLSX workbook (matching filter).
func (s *Service) ExportXLSX(ctx context.Context, filter domain.ProductFilter) ([]byte, error) {
	products, err := s.fetchAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Produtos"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for r, p := range products {
		row := r + 2
		values := productRow(p)
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if c == 1 {
				// GTIN stays text so Excel doesn't mangle leading zeros
				_ = f.SetCellStr(sheet, cell, v)
				continue
			}
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 38) // id
	_ = f.SetColWidth(sheet, "B", "B", 16) // gtin
	_ = f.SetColWidth(sheet, "C", "C", 40) // title
	_ = f.SetColWidth(sheet, "D", "F", 20) // brand, category, subcategory
	_ = f.SetColWidth(sheet, "G", "I", 12) // price, ncm, cest
	_ = f.SetColWidth(sheet, "J", "J", 32) // attributes
	_ = f.SetColWidth(sheet, "K", "K", 12) // confidence
	_ = f.SetColWidth(sheet, "L", "L", 18) // created at

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	log.Printf("[EXPORT] xlsx done - rows: %d", len(products))
	return buf.Bytes(), nil
}

// fetchAll pages through the repository until the filter is exhausted.
func (s *Service) fetchAll(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	filter.Page = 1
	filter.PageSize = 200

	var all []*domain.Product
	for {
		page, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			return all, nil
		}
		filter.Page++
	}
}

func productRow(p *domain.Product) []string {
	price := ""
	if p.Price != nil {
		price = strings.ReplaceAll(p.Price.StringFixed(2), ".", ",")
	}
	created := ""
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.Format(time.DateTime)
	}
	return []string{
		p.ID.String(),
		p.GTIN,
		p.Title,
		p.Brand,
		p.Category,
		p.Subcategory,
		price,
		p.NCM,
		p.CEST,
		formatAttributes(p.Attributes),
		fmt.Sprintf("%.2f", p.Confidence),
		created,
	}
}

// formatAttributes renders "tamanho=M; cor=Azul" with stable key order.
func formatAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, "; ")
}
