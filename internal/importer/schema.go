package importer

// Menu is the external import format. It only lives for the duration of an
// import and is converted to stored documents by the Writer.
type Menu struct {
	ID         string     `json:"id"`
	NameEn     string     `json:"name_en"`
	NameAr     *string    `json:"name_ar,omitempty"`
	Categories []Category `json:"categories"`
}

type Category struct {
	ID     string  `json:"id"`
	NameEn string  `json:"name_en"`
	NameAr *string `json:"name_ar,omitempty"`
	Dishes []Dish  `json:"dishes"`
}

type Dish struct {
	ID                  string   `json:"id"`
	NameEn              string   `json:"name_en"`
	NameAr              *string  `json:"name_ar,omitempty"`
	DescriptionEn       *string  `json:"description_en,omitempty"`
	DescriptionAr       *string  `json:"description_ar,omitempty"`
	Price               *float64 `json:"price,omitempty"`
	AllergensEn         []string `json:"allergens_en,omitempty"`
	AllergensAr         []string `json:"allergens_ar,omitempty"`
	Options             []Option `json:"options,omitempty"`
	OptionsHeaderEn     *string  `json:"options_header_en,omitempty"`
	OptionsHeaderAr     *string  `json:"options_header_ar,omitempty"`
	AreOptionsRequired  *bool    `json:"are_options_required,omitempty"`
	MaxOptionsSelection *int     `json:"max_options_selection,omitempty"`
	IsActive            *bool    `json:"is_active,omitempty"`
}

type Option struct {
	NameEn string   `json:"name_en"`
	NameAr *string  `json:"name_ar,omitempty"`
	Price  *float64 `json:"price,omitempty"`
}

// DishCount is the number of dish entries across all categories.
func (m *Menu) DishCount() int {
	n := 0
	for _, c := range m.Categories {
		n += len(c.Dishes)
	}
	return n
}
