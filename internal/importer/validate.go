package importer

import (
	"fmt"
	"strings"
)

const (
	WarnEmptyMenu         = "empty_menu"
	WarnDuplicateCategory = "duplicate_category"
	WarnBlankCategoryName = "blank_category_name"
	WarnEmptyCategory     = "empty_category"
	WarnDuplicateDish     = "duplicate_dish"
	WarnNegativePrice     = "negative_price"
)

// Warning is advisory. Imports proceed regardless of warnings.
type Warning struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	CategoryID string `json:"categoryId,omitempty"`
	DishID     string `json:"dishId,omitempty"`
}

func Validate(m *Menu) []Warning {
	warnings := []Warning{}

	if len(m.Categories) == 0 {
		return append(warnings, Warning{
			Code:    WarnEmptyMenu,
			Message: "menu has no categories, the menu will be empty",
		})
	}

	seenCategories := map[string]bool{}
	for i, c := range m.Categories {
		if seenCategories[c.ID] {
			warnings = append(warnings, Warning{
				Code:       WarnDuplicateCategory,
				CategoryID: c.ID,
				Message:    fmt.Sprintf("category %q appears more than once, entry %d overwrites the earlier one", c.ID, i+1),
			})
		}
		seenCategories[c.ID] = true

		if strings.TrimSpace(c.NameEn) == "" {
			warnings = append(warnings, Warning{
				Code:       WarnBlankCategoryName,
				CategoryID: c.ID,
				Message:    fmt.Sprintf("category %q has no English name", c.ID),
			})
		}

		if len(c.Dishes) == 0 {
			warnings = append(warnings, Warning{
				Code:       WarnEmptyCategory,
				CategoryID: c.ID,
				Message:    fmt.Sprintf("category %q has no dishes", label(c.NameEn, c.ID)),
			})
		}

		seenDishes := map[string]bool{}
		for _, d := range c.Dishes {
			if seenDishes[d.ID] {
				warnings = append(warnings, Warning{
					Code:       WarnDuplicateDish,
					CategoryID: c.ID,
					DishID:     d.ID,
					Message:    fmt.Sprintf("dish %q appears more than once in category %q, the later entry wins", d.ID, c.ID),
				})
			}
			seenDishes[d.ID] = true

			if d.Price != nil && *d.Price < 0 {
				warnings = append(warnings, Warning{
					Code:       WarnNegativePrice,
					CategoryID: c.ID,
					DishID:     d.ID,
					Message:    fmt.Sprintf("dish %q has a negative price (%g)", label(d.NameEn, d.ID), *d.Price),
				})
			}
		}
	}
	return warnings
}

func label(name, id string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return id
}
