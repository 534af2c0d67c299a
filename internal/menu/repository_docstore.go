package menu

import (
	"context"
	"sort"

	"menucms/internal/docstore"
)

type DocRepository struct {
	store docstore.Store
}

func NewDocRepository(store docstore.Store) *DocRepository {
	return &DocRepository{store: store}
}

// --------------------------------------------------
// RESTAURANTS
// --------------------------------------------------

func (r *DocRepository) GetRestaurant(ctx context.Context, restaurantID string) (*Restaurant, error) {
	doc, err := r.store.Get(ctx, RestaurantsCollection, restaurantID)
	if err != nil {
		return nil, err
	}
	return decodeRestaurant(restaurantID, doc)
}

func (r *DocRepository) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	snaps, err := r.store.List(ctx, RestaurantsCollection)
	if err != nil {
		return nil, err
	}

	out := make([]Restaurant, 0, len(snaps))
	for _, s := range snaps {
		res, err := decodeRestaurant(s.ID, s.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}

func (r *DocRepository) CreateRestaurant(ctx context.Context, fields docstore.Doc) (string, error) {
	return r.store.Add(ctx, RestaurantsCollection, fields)
}

func (r *DocRepository) UpdateRestaurant(ctx context.Context, restaurantID string, fields docstore.Doc) error {
	return r.store.Update(ctx, RestaurantsCollection, restaurantID, fields)
}

func (r *DocRepository) DeleteRestaurant(ctx context.Context, restaurantID string) error {
	return r.store.Delete(ctx, RestaurantsCollection, restaurantID)
}

// --------------------------------------------------
// CATEGORIES
// --------------------------------------------------

func (r *DocRepository) GetCategory(ctx context.Context, restaurantID, categoryID string) (*Category, error) {
	doc, err := r.store.Get(ctx, CategoriesCollection(restaurantID), categoryID)
	if err != nil {
		return nil, err
	}
	return decodeCategory(categoryID, doc)
}

// ListCategories returns categories sorted by order; ties keep insertion order.
func (r *DocRepository) ListCategories(ctx context.Context, restaurantID string) ([]Category, error) {
	snaps, err := r.store.List(ctx, CategoriesCollection(restaurantID))
	if err != nil {
		return nil, err
	}

	out := make([]Category, 0, len(snaps))
	for _, s := range snaps {
		c, err := decodeCategory(s.ID, s.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *DocRepository) CreateCategory(ctx context.Context, restaurantID string, fields docstore.Doc) (string, error) {
	return r.store.Add(ctx, CategoriesCollection(restaurantID), fields)
}

func (r *DocRepository) UpdateCategory(ctx context.Context, restaurantID, categoryID string, fields docstore.Doc) error {
	return r.store.Update(ctx, CategoriesCollection(restaurantID), categoryID, fields)
}

func (r *DocRepository) DeleteCategory(ctx context.Context, restaurantID, categoryID string) error {
	return r.store.Delete(ctx, CategoriesCollection(restaurantID), categoryID)
}

// --------------------------------------------------
// DISHES
// --------------------------------------------------

func (r *DocRepository) GetDish(ctx context.Context, restaurantID, categoryID, dishID string) (*Dish, error) {
	doc, err := r.store.Get(ctx, DishesCollection(restaurantID, categoryID), dishID)
	if err != nil {
		return nil, err
	}
	d := Normalize(doc)
	d.ID = dishID
	return &d, nil
}

func (r *DocRepository) ListDishes(ctx context.Context, restaurantID, categoryID string) ([]Dish, error) {
	snaps, err := r.store.List(ctx, DishesCollection(restaurantID, categoryID))
	if err != nil {
		return nil, err
	}

	out := make([]Dish, 0, len(snaps))
	for _, s := range snaps {
		d := Normalize(s.Data)
		d.ID = s.ID
		out = append(out, d)
	}
	return out, nil
}

func (r *DocRepository) CreateDish(ctx context.Context, restaurantID, categoryID string, fields docstore.Doc) (string, error) {
	return r.store.Add(ctx, DishesCollection(restaurantID, categoryID), fields)
}

func (r *DocRepository) UpdateDish(ctx context.Context, restaurantID, categoryID, dishID string, fields docstore.Doc) error {
	return r.store.Update(ctx, DishesCollection(restaurantID, categoryID), dishID, fields)
}

func (r *DocRepository) DeleteDish(ctx context.Context, restaurantID, categoryID, dishID string) error {
	return r.store.Delete(ctx, DishesCollection(restaurantID, categoryID), dishID)
}

func decodeRestaurant(id string, doc docstore.Doc) (*Restaurant, error) {
	res := Restaurant{
		ID:             id,
		Name:           str(doc, "name"),
		NameAr:         str(doc, "nameAr"),
		ThemeColor:     str(doc, "themeColor"),
		Layout:         str(doc, "layout"),
		GridColumns:    int(num(doc, "gridColumns")),
		Font:           str(doc, "font"),
		LogoPath:       str(doc, "logoPath"),
		BackgroundPath: str(doc, "backgroundPath"),
		CreatedAt:      timestamp(doc, "createdAt"),
		UpdatedAt:      timestamp(doc, "updatedAt"),
	}
	// Imported restaurants only carry names until someone edits them.
	if res.Layout == "" {
		res.Layout = LayoutList
	}
	if res.ThemeColor == "" {
		res.ThemeColor = defaultThemeColor
	}
	if res.GridColumns == 0 {
		res.GridColumns = 2
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = timestamp(doc, "importedAt")
	}
	return &res, nil
}

func decodeCategory(id string, doc docstore.Doc) (*Category, error) {
	c := Category{
		ID:            id,
		Name:          str(doc, "name"),
		NameAr:        str(doc, "nameAr"),
		Order:         int(num(doc, "order")),
		IsActive:      boolean(doc, "isActive", true),
		AvailableFrom: str(doc, "availableFrom"),
		AvailableTo:   str(doc, "availableTo"),
		IconPath:      str(doc, "iconPath"),
		CreatedAt:     timestamp(doc, "createdAt"),
		UpdatedAt:     timestamp(doc, "updatedAt"),
	}
	return &c, nil
}
