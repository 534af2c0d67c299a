package menu

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Menu"

var exportHeader = []any{
	"Category", "Category (AR)", "Dish", "Dish (AR)",
	"Description", "Description (AR)", "Price", "Active", "Options", "Allergens",
}

// ExportXLSX writes the whole restaurant menu as a spreadsheet, one row per
// dish, in category order.
func (s *Service) ExportXLSX(ctx context.Context, restaurantID string) ([]byte, error) {
	if _, err := s.repo.GetRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}
	categories, err := s.repo.ListCategories(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func(f *excelize.File) {
		if err := f.Close(); err != nil {
			s.log.WithError(err).Warn("close workbook")
		}
	}(f)

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}

	row := 2
	for _, c := range categories {
		dishes, err := s.repo.ListDishes(ctx, restaurantID, c.ID)
		if err != nil {
			return nil, err
		}
		for _, d := range dishes {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, err
			}
			values := []any{
				c.Name, c.NameAr, d.Name, d.NameAr,
				d.Description, d.DescriptionAr, d.Price, d.IsActive,
				optionsSummary(d.Options), allergenSummary(d.Allergens),
			}
			if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func optionsSummary(g *OptionsGroup) string {
	if g == nil {
		return ""
	}
	parts := make([]string, 0, len(g.Items))
	for _, it := range g.Items {
		parts = append(parts, fmt.Sprintf("%s (+%.3f)", it.Name, it.Price))
	}
	summary := strings.Join(parts, ", ")
	if g.Header != "" {
		summary = g.Header + ": " + summary
	}
	return summary
}

func allergenSummary(list []Allergen) string {
	names := make([]string, 0, len(list))
	for _, a := range list {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}
