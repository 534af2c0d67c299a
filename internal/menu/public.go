package menu

import (
	"context"
	"time"
)

// PublicMenu is the read-only tree served to diners. Inactive categories and
// dishes are left out, and storage paths are resolved to URLs.
type PublicMenu struct {
	Restaurant PublicRestaurant `json:"restaurant"`
	Categories []PublicCategory `json:"categories"`
}

type PublicRestaurant struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	NameAr        string `json:"nameAr"`
	ThemeColor    string `json:"themeColor"`
	Layout        string `json:"layout"`
	GridColumns   int    `json:"gridColumns"`
	Font          string `json:"font"`
	LogoURL       string `json:"logoUrl,omitempty"`
	BackgroundURL string `json:"backgroundUrl,omitempty"`
}

type PublicCategory struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	NameAr        string       `json:"nameAr"`
	IconURL       string       `json:"iconUrl,omitempty"`
	AvailableFrom string       `json:"availableFrom,omitempty"`
	AvailableTo   string       `json:"availableTo,omitempty"`
	AvailableNow  bool         `json:"availableNow"`
	Dishes        []PublicDish `json:"dishes"`
}

type PublicDish struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	NameAr        string        `json:"nameAr"`
	Description   string        `json:"description"`
	DescriptionAr string        `json:"descriptionAr"`
	Price         float64       `json:"price"`
	ImageURLs     []string      `json:"imageUrls"`
	Options       *OptionsGroup `json:"options"`
	Allergens     []Allergen    `json:"allergens"`
}

func (s *Service) PublicMenu(ctx context.Context, restaurantID string) (*PublicMenu, error) {
	res, err := s.repo.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	out := &PublicMenu{
		Restaurant: PublicRestaurant{
			ID:            res.ID,
			Name:          res.Name,
			NameAr:        res.NameAr,
			ThemeColor:    res.ThemeColor,
			Layout:        res.Layout,
			GridColumns:   res.GridColumns,
			Font:          res.Font,
			LogoURL:       s.url(ctx, res.LogoPath),
			BackgroundURL: s.url(ctx, res.BackgroundPath),
		},
		Categories: []PublicCategory{},
	}

	categories, err := s.repo.ListCategories(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	for _, c := range categories {
		if !c.IsActive {
			continue
		}
		dishes, err := s.repo.ListDishes(ctx, restaurantID, c.ID)
		if err != nil {
			return nil, err
		}

		pc := PublicCategory{
			ID:            c.ID,
			Name:          c.Name,
			NameAr:        c.NameAr,
			IconURL:       s.url(ctx, c.IconPath),
			AvailableFrom: c.AvailableFrom,
			AvailableTo:   c.AvailableTo,
			AvailableNow:  AvailableAt(c.AvailableFrom, c.AvailableTo, now),
			Dishes:        []PublicDish{},
		}
		for _, d := range dishes {
			if !d.IsActive {
				continue
			}
			urls := make([]string, 0, len(d.Images))
			for _, p := range d.Images {
				if u := s.url(ctx, p); u != "" {
					urls = append(urls, u)
				}
			}
			pc.Dishes = append(pc.Dishes, PublicDish{
				ID:            d.ID,
				Name:          d.Name,
				NameAr:        d.NameAr,
				Description:   d.Description,
				DescriptionAr: d.DescriptionAr,
				Price:         d.Price,
				ImageURLs:     urls,
				Options:       d.Options,
				Allergens:     d.Allergens,
			})
		}
		out.Categories = append(out.Categories, pc)
	}
	return out, nil
}

// url resolves a storage path, returning "" when the blob cannot be found.
func (s *Service) url(ctx context.Context, path string) string {
	u, err := s.resolver.URL(ctx, path)
	if err != nil {
		s.log.WithError(err).WithField("path", path).Debug("url not resolved")
		return ""
	}
	return u
}

// Clock overrides the time source. Used by tests.
func (s *Service) Clock(now func() time.Time) {
	s.now = now
}
