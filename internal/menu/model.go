package menu

import "time"

const (
	LayoutList = "list"
	LayoutGrid = "grid"

	// MaxDishImages caps the photos attached to one dish.
	MaxDishImages = 6
)

type Restaurant struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NameAr         string    `json:"nameAr"`
	ThemeColor     string    `json:"themeColor"`
	Layout         string    `json:"layout"`
	GridColumns    int       `json:"gridColumns"`
	Font           string    `json:"font"`
	LogoPath       string    `json:"logoPath,omitempty"`
	BackgroundPath string    `json:"backgroundPath,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Category struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	NameAr        string    `json:"nameAr"`
	Order         int       `json:"order"`
	IsActive      bool      `json:"isActive"`
	AvailableFrom string    `json:"availableFrom,omitempty"` // HH:MM, local
	AvailableTo   string    `json:"availableTo,omitempty"`
	IconPath      string    `json:"iconPath,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Dish is the normalized, in-memory shape. The stored shape is flat; see
// Normalize and Denormalize.
type Dish struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	NameAr        string        `json:"nameAr"`
	Description   string        `json:"description"`
	DescriptionAr string        `json:"descriptionAr"`
	Price         float64       `json:"price"`
	IsActive      bool          `json:"isActive"`
	Images        []string      `json:"images"`
	Options       *OptionsGroup `json:"options"`
	Allergens     []Allergen    `json:"allergens"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type OptionsGroup struct {
	Header       string       `json:"header"`
	HeaderAr     string       `json:"headerAr"`
	Required     bool         `json:"required"`
	MaxSelection *int         `json:"maxSelection,omitempty"`
	Items        []OptionItem `json:"items"`
}

// OptionItem price is added to the dish base price when selected.
type OptionItem struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	NameAr string  `json:"nameAr"`
	Price  float64 `json:"price"`
}

type Allergen struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	NameAr string `json:"nameAr"`
}
