package menu

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"menucms/internal/docstore"
	"menucms/internal/images"
	"menucms/internal/storage"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrTooManyImages  = fmt.Errorf("a dish can hold at most %d images", MaxDishImages)
	ErrUnknownImage   = errors.New("image does not belong to this dish")
	clockPattern      = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	hexColorPattern   = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	defaultThemeColor = "#1f2937"
)

// PartialUploadError reports an image upload that failed after the document
// was saved with whatever images did make it.
type PartialUploadError struct {
	Saved int
	Err   error
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf("only %d image(s) saved: %v", e.Saved, e.Err)
}

func (e *PartialUploadError) Unwrap() error { return e.Err }

type Service struct {
	repo     Repository
	uploader *images.Uploader
	blobs    storage.BlobStore
	resolver *storage.Resolver
	deleter  *Deleter
	log      logrus.FieldLogger
	loc      *time.Location
	now      func() time.Time
}

func NewService(
	repo Repository,
	uploader *images.Uploader,
	blobs storage.BlobStore,
	resolver *storage.Resolver,
	log logrus.FieldLogger,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:     repo,
		uploader: uploader,
		blobs:    blobs,
		resolver: resolver,
		deleter:  NewDeleter(repo, blobs, log),
		log:      log,
		loc:      loc,
		now:      time.Now,
	}
}

// --------------------------------------------------
// Restaurants
// --------------------------------------------------

type RestaurantInput struct {
	Name        string `json:"name"`
	NameAr      string `json:"nameAr"`
	ThemeColor  string `json:"themeColor"`
	Layout      string `json:"layout"`
	GridColumns int    `json:"gridColumns"`
	Font        string `json:"font"`
}

// RestaurantPatch carries only the fields being changed.
type RestaurantPatch struct {
	Name        *string `json:"name"`
	NameAr      *string `json:"nameAr"`
	ThemeColor  *string `json:"themeColor"`
	Layout      *string `json:"layout"`
	GridColumns *int    `json:"gridColumns"`
	Font        *string `json:"font"`
}

func (s *Service) CreateRestaurant(ctx context.Context, in RestaurantInput) (*Restaurant, error) {
	if in.ThemeColor == "" {
		in.ThemeColor = defaultThemeColor
	}
	if in.Layout == "" {
		in.Layout = LayoutList
	}
	if in.GridColumns == 0 {
		in.GridColumns = 2
	}
	if in.NameAr == "" {
		in.NameAr = in.Name
	}
	if err := validateRestaurant(in.Name, in.ThemeColor, in.Layout, in.GridColumns); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	id, err := s.repo.CreateRestaurant(ctx, docstore.Doc{
		"name":        strings.TrimSpace(in.Name),
		"nameAr":      strings.TrimSpace(in.NameAr),
		"themeColor":  in.ThemeColor,
		"layout":      in.Layout,
		"gridColumns": in.GridColumns,
		"font":        in.Font,
		"createdAt":   now,
		"updatedAt":   now,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetRestaurant(ctx, id)
}

func (s *Service) GetRestaurant(ctx context.Context, restaurantID string) (*Restaurant, error) {
	return s.repo.GetRestaurant(ctx, restaurantID)
}

func (s *Service) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	return s.repo.ListRestaurants(ctx)
}

func (s *Service) UpdateRestaurant(ctx context.Context, restaurantID string, p RestaurantPatch) (*Restaurant, error) {
	current, err := s.repo.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	fields := docstore.Doc{}
	merged := *current
	if p.Name != nil {
		merged.Name = strings.TrimSpace(*p.Name)
		fields["name"] = merged.Name
	}
	if p.NameAr != nil {
		fields["nameAr"] = strings.TrimSpace(*p.NameAr)
	}
	if p.ThemeColor != nil {
		merged.ThemeColor = *p.ThemeColor
		fields["themeColor"] = merged.ThemeColor
	}
	if p.Layout != nil {
		merged.Layout = *p.Layout
		fields["layout"] = merged.Layout
	}
	if p.GridColumns != nil {
		merged.GridColumns = *p.GridColumns
		fields["gridColumns"] = merged.GridColumns
	}
	if p.Font != nil {
		fields["font"] = *p.Font
	}

	if merged.ThemeColor == "" {
		merged.ThemeColor = defaultThemeColor
	}
	if merged.GridColumns == 0 {
		merged.GridColumns = 2
	}
	if err := validateRestaurant(merged.Name, merged.ThemeColor, merged.Layout, merged.GridColumns); err != nil {
		return nil, err
	}

	fields["updatedAt"] = s.now().UTC()
	if err := s.repo.UpdateRestaurant(ctx, restaurantID, fields); err != nil {
		return nil, err
	}
	return s.repo.GetRestaurant(ctx, restaurantID)
}

func validateRestaurant(name, color, layout string, columns int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !hexColorPattern.MatchString(color) {
		return fmt.Errorf("%w: themeColor must be a hex color", ErrInvalidInput)
	}
	if layout != LayoutList && layout != LayoutGrid {
		return fmt.Errorf("%w: layout must be %q or %q", ErrInvalidInput, LayoutList, LayoutGrid)
	}
	if columns < 1 || columns > 4 {
		return fmt.Errorf("%w: gridColumns must be between 1 and 4", ErrInvalidInput)
	}
	return nil
}

// SetRestaurantLogo uploads a new logo and points the restaurant at it.
// The previous logo blob is removed afterwards, best effort.
func (s *Service) SetRestaurantLogo(ctx context.Context, restaurantID string, data []byte) (*Restaurant, error) {
	return s.replaceRestaurantImage(ctx, restaurantID, "logoPath", data, s.uploader.UploadRestaurantLogo)
}

func (s *Service) SetRestaurantBackground(ctx context.Context, restaurantID string, data []byte) (*Restaurant, error) {
	return s.replaceRestaurantImage(ctx, restaurantID, "backgroundPath", data, s.uploader.UploadRestaurantBackground)
}

func (s *Service) replaceRestaurantImage(
	ctx context.Context,
	restaurantID, field string,
	data []byte,
	upload func(context.Context, string, []byte) (string, error),
) (*Restaurant, error) {
	current, err := s.repo.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	old := current.LogoPath
	if field == "backgroundPath" {
		old = current.BackgroundPath
	}

	path, err := upload(ctx, restaurantID, data)
	if err != nil {
		return nil, err
	}

	err = s.repo.UpdateRestaurant(ctx, restaurantID, docstore.Doc{
		field:       path,
		"updatedAt": s.now().UTC(),
	})
	if err != nil {
		s.deleteBlob(ctx, path)
		return nil, err
	}

	if old != "" && old != path {
		s.deleteBlob(ctx, old)
	}
	return s.repo.GetRestaurant(ctx, restaurantID)
}

// --------------------------------------------------
// Categories
// --------------------------------------------------

type CategoryInput struct {
	Name          string `json:"name"`
	NameAr        string `json:"nameAr"`
	Order         *int   `json:"order"`
	IsActive      *bool  `json:"isActive"`
	AvailableFrom string `json:"availableFrom"`
	AvailableTo   string `json:"availableTo"`
}

type CategoryPatch struct {
	Name          *string `json:"name"`
	NameAr        *string `json:"nameAr"`
	Order         *int    `json:"order"`
	IsActive      *bool   `json:"isActive"`
	AvailableFrom *string `json:"availableFrom"`
	AvailableTo   *string `json:"availableTo"`
}

func (s *Service) CreateCategory(ctx context.Context, restaurantID string, in CategoryInput) (*Category, error) {
	if _, err := s.repo.GetRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := validateWindow(in.AvailableFrom, in.AvailableTo); err != nil {
		return nil, err
	}

	order := 0
	if in.Order != nil {
		order = *in.Order
	} else {
		existing, err := s.repo.ListCategories(ctx, restaurantID)
		if err != nil {
			return nil, err
		}
		for _, c := range existing {
			if c.Order >= order {
				order = c.Order + 1
			}
		}
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	nameAr := strings.TrimSpace(in.NameAr)
	if nameAr == "" {
		nameAr = strings.TrimSpace(in.Name)
	}

	now := s.now().UTC()
	id, err := s.repo.CreateCategory(ctx, restaurantID, docstore.Doc{
		"name":          strings.TrimSpace(in.Name),
		"nameAr":        nameAr,
		"order":         order,
		"isActive":      active,
		"availableFrom": in.AvailableFrom,
		"availableTo":   in.AvailableTo,
		"createdAt":     now,
		"updatedAt":     now,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetCategory(ctx, restaurantID, id)
}

func (s *Service) GetCategory(ctx context.Context, restaurantID, categoryID string) (*Category, error) {
	return s.repo.GetCategory(ctx, restaurantID, categoryID)
}

func (s *Service) ListCategories(ctx context.Context, restaurantID string) ([]Category, error) {
	return s.repo.ListCategories(ctx, restaurantID)
}

func (s *Service) UpdateCategory(ctx context.Context, restaurantID, categoryID string, p CategoryPatch) (*Category, error) {
	current, err := s.repo.GetCategory(ctx, restaurantID, categoryID)
	if err != nil {
		return nil, err
	}

	fields := docstore.Doc{}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		fields["name"] = strings.TrimSpace(*p.Name)
	}
	if p.NameAr != nil {
		fields["nameAr"] = strings.TrimSpace(*p.NameAr)
	}
	if p.Order != nil {
		fields["order"] = *p.Order
	}
	if p.IsActive != nil {
		fields["isActive"] = *p.IsActive
	}

	from, to := current.AvailableFrom, current.AvailableTo
	if p.AvailableFrom != nil {
		from = *p.AvailableFrom
		fields["availableFrom"] = from
	}
	if p.AvailableTo != nil {
		to = *p.AvailableTo
		fields["availableTo"] = to
	}
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}

	fields["updatedAt"] = s.now().UTC()
	if err := s.repo.UpdateCategory(ctx, restaurantID, categoryID, fields); err != nil {
		return nil, err
	}
	return s.repo.GetCategory(ctx, restaurantID, categoryID)
}

// ReorderCategories assigns order = position in ids.
func (s *Service) ReorderCategories(ctx context.Context, restaurantID string, ids []string) error {
	now := s.now().UTC()
	for i, id := range ids {
		err := s.repo.UpdateCategory(ctx, restaurantID, id, docstore.Doc{
			"order":     i,
			"updatedAt": now,
		})
		if err != nil {
			return fmt.Errorf("reorder category %s: %w", id, err)
		}
	}
	return nil
}

// SetCategoryIcon uploads the icon to its fixed path and records it.
func (s *Service) SetCategoryIcon(ctx context.Context, restaurantID, categoryID string, data []byte) (*Category, error) {
	if _, err := s.repo.GetCategory(ctx, restaurantID, categoryID); err != nil {
		return nil, err
	}

	path, err := s.uploader.UploadCategoryIcon(ctx, restaurantID, categoryID, data)
	if err != nil {
		return nil, err
	}

	err = s.repo.UpdateCategory(ctx, restaurantID, categoryID, docstore.Doc{
		"iconPath":  path,
		"updatedAt": s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetCategory(ctx, restaurantID, categoryID)
}

func validateWindow(from, to string) error {
	if from == "" && to == "" {
		return nil
	}
	if !clockPattern.MatchString(from) || !clockPattern.MatchString(to) {
		return fmt.Errorf("%w: availability window must be two HH:MM times", ErrInvalidInput)
	}
	return nil
}

// AvailableAt reports whether a category window includes t. Windows that end
// before they start wrap past midnight. An empty window is always open.
func AvailableAt(from, to string, t time.Time) bool {
	if from == "" || to == "" {
		return true
	}
	start, err1 := time.Parse("15:04", from)
	end, err2 := time.Parse("15:04", to)
	if err1 != nil || err2 != nil {
		return true
	}

	now := t.Hour()*60 + t.Minute()
	s := start.Hour()*60 + start.Minute()
	e := end.Hour()*60 + end.Minute()

	if s <= e {
		return now >= s && now < e
	}
	return now >= s || now < e
}

// --------------------------------------------------
// Dishes
// --------------------------------------------------

// DishInput is the body for creating a dish. Images are added afterwards
// through AddDishImages.
type DishInput struct {
	Name          string        `json:"name"`
	NameAr        string        `json:"nameAr"`
	Description   string        `json:"description"`
	DescriptionAr string        `json:"descriptionAr"`
	Price         float64       `json:"price"`
	IsActive      *bool         `json:"isActive"`
	Options       *OptionsGroup `json:"options"`
	Allergens     []Allergen    `json:"allergens"`
}

func (in DishInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	return validateOptions(in.Options)
}

func validateOptions(g *OptionsGroup) error {
	if g == nil {
		return nil
	}
	if g.MaxSelection != nil && *g.MaxSelection < 1 {
		return fmt.Errorf("%w: maxSelection must be at least 1", ErrInvalidInput)
	}
	for _, it := range g.Items {
		if it.Price < 0 {
			return fmt.Errorf("%w: option prices must not be negative", ErrInvalidInput)
		}
	}
	return nil
}

// DishPatch carries only the fields being changed. An options group with no
// items clears the options. Images, when set, reorders the existing images;
// paths left out are deleted.
type DishPatch struct {
	Name          *string       `json:"name"`
	NameAr        *string       `json:"nameAr"`
	Description   *string       `json:"description"`
	DescriptionAr *string       `json:"descriptionAr"`
	Price         *float64      `json:"price"`
	IsActive      *bool         `json:"isActive"`
	Images        []string      `json:"images"`
	Options       *OptionsGroup `json:"options"`
	Allergens     *[]Allergen   `json:"allergens"`
}

func (p DishPatch) apply(d *Dish) error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		d.Name = strings.TrimSpace(*p.Name)
	}
	if p.NameAr != nil {
		d.NameAr = strings.TrimSpace(*p.NameAr)
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.DescriptionAr != nil {
		d.DescriptionAr = *p.DescriptionAr
	}
	if p.Price != nil {
		if *p.Price < 0 {
			return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
		}
		d.Price = *p.Price
	}
	if p.IsActive != nil {
		d.IsActive = *p.IsActive
	}
	if p.Options != nil {
		if err := validateOptions(p.Options); err != nil {
			return err
		}
		d.Options = p.Options
	}
	if p.Allergens != nil {
		d.Allergens = *p.Allergens
	}
	return nil
}

func (in DishInput) dish() Dish {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return Dish{
		Name:          strings.TrimSpace(in.Name),
		NameAr:        strings.TrimSpace(in.NameAr),
		Description:   in.Description,
		DescriptionAr: in.DescriptionAr,
		Price:         in.Price,
		IsActive:      active,
		Options:       in.Options,
		Allergens:     in.Allergens,
	}
}

func (s *Service) CreateDish(ctx context.Context, restaurantID, categoryID string, in DishInput) (*Dish, error) {
	if _, err := s.repo.GetCategory(ctx, restaurantID, categoryID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	fields := Denormalize(in.dish())
	now := s.now().UTC()
	fields["createdAt"] = now
	fields["updatedAt"] = now

	id, err := s.repo.CreateDish(ctx, restaurantID, categoryID, fields)
	if err != nil {
		return nil, err
	}
	return s.repo.GetDish(ctx, restaurantID, categoryID, id)
}

func (s *Service) GetDish(ctx context.Context, restaurantID, categoryID, dishID string) (*Dish, error) {
	return s.repo.GetDish(ctx, restaurantID, categoryID, dishID)
}

func (s *Service) ListDishes(ctx context.Context, restaurantID, categoryID string) ([]Dish, error) {
	return s.repo.ListDishes(ctx, restaurantID, categoryID)
}

// UpdateDish merges the patch into the stored dish and writes the whole
// dish back through Denormalize so the flat option fields stay consistent.
func (s *Service) UpdateDish(ctx context.Context, restaurantID, categoryID, dishID string, p DishPatch) (*Dish, error) {
	current, err := s.repo.GetDish(ctx, restaurantID, categoryID, dishID)
	if err != nil {
		return nil, err
	}

	d := *current
	if err := p.apply(&d); err != nil {
		return nil, err
	}

	var removed []string
	if p.Images != nil {
		if len(p.Images) > MaxDishImages {
			return nil, ErrTooManyImages
		}
		have := map[string]bool{}
		for _, path := range current.Images {
			have[path] = true
		}
		keep := map[string]bool{}
		for _, path := range p.Images {
			if !have[path] {
				return nil, fmt.Errorf("%w: %s", ErrUnknownImage, path)
			}
			if keep[path] {
				return nil, fmt.Errorf("%w: %s is listed twice", ErrInvalidInput, path)
			}
			keep[path] = true
		}
		for _, path := range current.Images {
			if !keep[path] {
				removed = append(removed, path)
			}
		}
		d.Images = p.Images
	}

	fields := Denormalize(d)
	fields["updatedAt"] = s.now().UTC()
	if err := s.repo.UpdateDish(ctx, restaurantID, categoryID, dishID, fields); err != nil {
		return nil, err
	}

	for _, path := range removed {
		s.deleteBlob(ctx, path)
	}
	return s.repo.GetDish(ctx, restaurantID, categoryID, dishID)
}

// AddDishImages uploads files one by one and appends them to the dish.
// If an upload fails, the images stored so far are still saved and a
// *PartialUploadError is returned alongside the updated dish.
func (s *Service) AddDishImages(
	ctx context.Context,
	restaurantID, categoryID, dishID string,
	files [][]byte,
	onProgress images.ProgressFunc,
) (*Dish, error) {
	current, err := s.repo.GetDish(ctx, restaurantID, categoryID, dishID)
	if err != nil {
		return nil, err
	}
	if len(current.Images)+len(files) > MaxDishImages {
		return nil, ErrTooManyImages
	}

	paths, uploadErr := s.uploader.UploadDishImages(ctx, restaurantID, categoryID, dishID, files, onProgress)
	if len(paths) == 0 && uploadErr != nil {
		return nil, uploadErr
	}

	all := append(append([]string{}, current.Images...), paths...)
	err = s.repo.UpdateDish(ctx, restaurantID, categoryID, dishID, docstore.Doc{
		"images":    all,
		"updatedAt": s.now().UTC(),
	})
	if err != nil {
		for _, p := range paths {
			s.deleteBlob(ctx, p)
		}
		return nil, err
	}

	dish, err := s.repo.GetDish(ctx, restaurantID, categoryID, dishID)
	if err != nil {
		return nil, err
	}
	if uploadErr != nil {
		s.log.WithError(uploadErr).WithField("dish_id", dishID).Warn("dish saved with partial images")
		return dish, &PartialUploadError{Saved: len(paths), Err: uploadErr}
	}
	return dish, nil
}

// --------------------------------------------------
// Deletes
// --------------------------------------------------

func (s *Service) DeleteRestaurant(ctx context.Context, restaurantID string) (*DeleteReport, error) {
	return s.deleter.DeleteRestaurant(ctx, restaurantID)
}

func (s *Service) DeleteCategory(ctx context.Context, restaurantID, categoryID string) (*DeleteReport, error) {
	return s.deleter.DeleteCategory(ctx, restaurantID, categoryID)
}

func (s *Service) DeleteDish(ctx context.Context, restaurantID, categoryID, dishID string) (*DeleteReport, error) {
	return s.deleter.DeleteDish(ctx, restaurantID, categoryID, dishID)
}

func (s *Service) deleteBlob(ctx context.Context, path string) {
	err := s.blobs.Delete(ctx, path)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.WithError(err).WithField("path", path).Warn("blob cleanup failed")
	}
}
