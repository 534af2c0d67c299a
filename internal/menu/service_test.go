package menu

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"menucms/internal/docstore"
	"menucms/internal/images"
	"menucms/internal/logging"
	"menucms/internal/storage"
)

type testEnv struct {
	svc   *Service
	store *docstore.MemoryStore
	blobs *storage.MemoryBlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith builds a service; blobs overrides the blob store the service
// deletes through while uploads still land in the memory store.
func newTestEnvWith(t *testing.T, wrap func(storage.BlobStore) storage.BlobStore) *testEnv {
	t.Helper()
	store := docstore.NewMemoryStore()
	mem := storage.NewMemoryBlobStore("https://cdn.test")
	var blobs storage.BlobStore = mem
	if wrap != nil {
		blobs = wrap(mem)
	}
	log := logging.Discard()
	svc := NewService(
		NewDocRepository(store),
		images.NewUploader(mem, log),
		blobs,
		storage.NewResolver(mem, storage.NewURLCache()),
		log,
		time.UTC,
	)
	return &testEnv{svc: svc, store: store, blobs: mem}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{200, 10, 10, 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCreateRestaurant_Defaults(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.svc.CreateRestaurant(context.Background(), RestaurantInput{Name: "Cafe"})
	if err != nil {
		t.Fatal(err)
	}
	if res.NameAr != "Cafe" || res.Layout != LayoutList || res.GridColumns != 2 || res.ThemeColor == "" {
		t.Fatalf("defaults not applied: %+v", res)
	}
	if res.CreatedAt.IsZero() || !res.CreatedAt.Equal(res.UpdatedAt) {
		t.Fatalf("expected matching timestamps, got %v %v", res.CreatedAt, res.UpdatedAt)
	}
}

func TestCreateRestaurant_Invalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []RestaurantInput{
		{Name: " "},
		{Name: "Cafe", Layout: "table"},
		{Name: "Cafe", ThemeColor: "red"},
		{Name: "Cafe", GridColumns: 9},
	}
	for _, in := range cases {
		if _, err := env.svc.CreateRestaurant(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%+v: expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestUpdateRestaurant_PartialMergeRefreshesUpdatedAt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	env.svc.Clock(func() time.Time { return start })
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe", Font: "Inter"})

	env.svc.Clock(func() time.Time { return start.Add(time.Hour) })
	layout := LayoutGrid
	updated, err := env.svc.UpdateRestaurant(ctx, res.ID, RestaurantPatch{Layout: &layout})
	if err != nil {
		t.Fatal(err)
	}

	if updated.Layout != LayoutGrid || updated.Font != "Inter" || updated.Name != "Cafe" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if !updated.UpdatedAt.Equal(start.Add(time.Hour)) || !updated.CreatedAt.Equal(start) {
		t.Fatalf("timestamps wrong: %v %v", updated.CreatedAt, updated.UpdatedAt)
	}
}

func TestSetRestaurantLogo_ReplacesOldBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})

	first, err := env.svc.SetRestaurantLogo(ctx, res.ID, pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.svc.SetRestaurantLogo(ctx, res.ID, pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}

	if first.LogoPath == second.LogoPath {
		t.Fatal("replacement should use a fresh path")
	}
	if _, _, ok := env.blobs.Object(first.LogoPath); ok {
		t.Fatal("old logo should be deleted")
	}
	if _, ct, ok := env.blobs.Object(second.LogoPath); !ok || ct != "image/png" {
		t.Fatalf("new logo missing or wrong type %q", ct)
	}
}

func TestCreateCategory_OrderAndWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})

	a, err := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Breakfast", AvailableFrom: "06:00", AvailableTo: "11:30"})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Lunch"})
	if a.Order != 0 || b.Order != 1 {
		t.Fatalf("expected sequential order, got %d %d", a.Order, b.Order)
	}
	if !a.IsActive || a.NameAr != "Breakfast" {
		t.Fatalf("unexpected defaults %+v", a)
	}

	_, err = env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Late", AvailableFrom: "25:00", AvailableTo: "02:00"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid window error, got %v", err)
	}

	if _, err := env.svc.CreateCategory(ctx, "missing", CategoryInput{Name: "X"}); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReorderCategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})
	a, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "A"})
	b, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "B"})

	if err := env.svc.ReorderCategories(ctx, res.ID, []string{b.ID, a.ID}); err != nil {
		t.Fatal(err)
	}
	list, _ := env.svc.ListCategories(ctx, res.ID)
	if list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("order not applied: %+v", list)
	}
}

func TestAvailableAt(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC) }

	cases := []struct {
		from, to string
		t        time.Time
		want     bool
	}{
		{"", "", at(3, 0), true},
		{"06:00", "11:30", at(6, 0), true},
		{"06:00", "11:30", at(11, 30), false},
		{"06:00", "11:30", at(12, 0), false},
		{"22:00", "02:00", at(23, 15), true},
		{"22:00", "02:00", at(1, 59), true},
		{"22:00", "02:00", at(12, 0), false},
	}
	for _, c := range cases {
		if got := AvailableAt(c.from, c.to, c.t); got != c.want {
			t.Errorf("AvailableAt(%s,%s,%s) = %v", c.from, c.to, c.t.Format("15:04"), got)
		}
	}
}

func TestCreateDish_StoresFlatShape(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})
	cat, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Drinks"})

	limit := 1
	dish, err := env.svc.CreateDish(ctx, res.ID, cat.ID, DishInput{
		Name:  "Latte",
		Price: 1.5,
		Options: &OptionsGroup{
			Header:       "Milk",
			MaxSelection: &limit,
			Items:        []OptionItem{{Name: "Oat", Price: 0.25}},
		},
		Allergens: []Allergen{{Name: "Milk"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := env.store.Get(ctx, DishesCollection(res.ID, cat.ID), dish.ID)
	if err != nil {
		t.Fatal(err)
	}
	if raw["optionsHeader"] != "Milk" {
		t.Fatalf("expected flat header, got %v", raw)
	}
	if _, ok := raw["options"].([]any); !ok {
		t.Fatalf("expected flat options list, got %T", raw["options"])
	}

	if dish.Options == nil || dish.Options.Items[0].ID == "" {
		t.Fatalf("expected normalized options with ids, got %+v", dish.Options)
	}
	if dish.Allergens[0].ID != "milk" {
		t.Fatalf("expected slug allergen id, got %+v", dish.Allergens)
	}
}

func TestCreateDish_RejectsNegativePrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})
	cat, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Drinks"})

	_, err := env.svc.CreateDish(ctx, res.ID, cat.ID, DishInput{Name: "Latte", Price: -1})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateDish_ClearingOptionsNullsFlatFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})
	cat, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Drinks"})
	dish, _ := env.svc.CreateDish(ctx, res.ID, cat.ID, DishInput{
		Name:    "Latte",
		Options: &OptionsGroup{Header: "Milk", Items: []OptionItem{{Name: "Oat"}}},
	})

	updated, err := env.svc.UpdateDish(ctx, res.ID, cat.ID, dish.ID, DishPatch{Options: &OptionsGroup{Header: "Milk"}})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Options != nil {
		t.Fatalf("options should be cleared, got %+v", updated.Options)
	}

	raw, _ := env.store.Get(ctx, DishesCollection(res.ID, cat.ID), dish.ID)
	for _, k := range []string{"options", "optionsHeader", "optionsHeaderAr", "areOptionsRequired", "maxOptionsSelection"} {
		if v, ok := raw[k]; !ok || v != nil {
			t.Errorf("%s should be stored as null, got %v", k, v)
		}
	}
}

func TestUpdateDish_PriceOnlyKeepsOtherFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})
	cat, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Drinks"})
	dish, err := env.svc.CreateDish(ctx, res.ID, cat.ID, DishInput{
		Name:          "Latte",
		NameAr:        "لاتيه",
		Description:   "Espresso and milk",
		DescriptionAr: "إسبريسو وحليب",
		Price:         1.5,
		Options:       &OptionsGroup{Header: "Size", Items: []OptionItem{{Name: "Large", Price: 0.5}}},
		Allergens:     []Allergen{{Name: "Milk"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	price := 2.0
	updated, err := env.svc.UpdateDish(ctx, res.ID, cat.ID, dish.ID, DishPatch{Price: &price})
	if err != nil {
		t.Fatal(err)
	}

	if updated.Price != 2 || updated.Name != "Latte" || updated.NameAr != "لاتيه" {
		t.Fatalf("names or price wrong: %+v", updated)
	}
	if updated.Description != "Espresso and milk" || updated.DescriptionAr != "إسبريسو وحليب" {
		t.Fatalf("descriptions lost: %+v", updated)
	}
	if updated.Options == nil || len(updated.Options.Items) != 1 || updated.Options.Items[0].Name != "Large" {
		t.Fatalf("options lost: %+v", updated.Options)
	}
	if updated.Options.Items[0].ID != dish.Options.Items[0].ID {
		t.Fatal("option item id should survive an unrelated update")
	}
	if len(updated.Allergens) != 1 || updated.Allergens[0].ID != "milk" {
		t.Fatalf("allergens lost: %+v", updated.Allergens)
	}
}

func TestUpdateDish_Invalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})
	cat, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Drinks"})
	dish, _ := env.svc.CreateDish(ctx, res.ID, cat.ID, DishInput{Name: "Latte", Price: 1})

	blank := "  "
	negative := -1.0
	for _, p := range []DishPatch{{Name: &blank}, {Price: &negative}} {
		if _, err := env.svc.UpdateDish(ctx, res.ID, cat.ID, dish.ID, p); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	}
}

func TestUpdateDish_ImageListCannotGrowPastCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})
	cat, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Drinks"})
	dish, _ := env.svc.CreateDish(ctx, res.ID, cat.ID, DishInput{Name: "Latte"})
	dish, err := env.svc.AddDishImages(ctx, res.ID, cat.ID, dish.ID, [][]byte{pngBytes(t)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	p := dish.Images[0]

	_, err = env.svc.UpdateDish(ctx, res.ID, cat.ID, dish.ID, DishPatch{Images: []string{p, p, p, p, p, p, p, p}})
	if !errors.Is(err, ErrTooManyImages) {
		t.Fatalf("expected ErrTooManyImages, got %v", err)
	}

	_, err = env.svc.UpdateDish(ctx, res.ID, cat.ID, dish.ID, DishPatch{Images: []string{p, p}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected duplicate paths to be rejected, got %v", err)
	}

	stored, _ := env.svc.GetDish(ctx, res.ID, cat.ID, dish.ID)
	if len(stored.Images) != 1 {
		t.Fatalf("rejected updates must not change images, got %v", stored.Images)
	}
}

func TestAddDishImages_CapAndRemoval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})
	cat, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Drinks"})
	dish, _ := env.svc.CreateDish(ctx, res.ID, cat.ID, DishInput{Name: "Latte"})

	files := [][]byte{pngBytes(t), pngBytes(t), pngBytes(t), pngBytes(t)}
	dish, err := env.svc.AddDishImages(ctx, res.ID, cat.ID, dish.ID, files, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(dish.Images) != 4 {
		t.Fatalf("expected 4 images, got %v", dish.Images)
	}

	_, err = env.svc.AddDishImages(ctx, res.ID, cat.ID, dish.ID, files[:3], nil)
	if !errors.Is(err, ErrTooManyImages) {
		t.Fatalf("expected ErrTooManyImages, got %v", err)
	}

	keep := []string{dish.Images[2], dish.Images[0]}
	updated, err := env.svc.UpdateDish(ctx, res.ID, cat.ID, dish.ID, DishPatch{Images: keep})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Images) != 2 || updated.Images[0] != keep[0] {
		t.Fatalf("images not reordered: %v", updated.Images)
	}
	if _, _, ok := env.blobs.Object(dish.Images[1]); ok {
		t.Fatal("removed image blob should be deleted")
	}
	if env.blobs.Len() != 2 {
		t.Fatalf("expected 2 blobs left, got %d", env.blobs.Len())
	}

	_, err = env.svc.UpdateDish(ctx, res.ID, cat.ID, dish.ID, DishPatch{Images: []string{"elsewhere.jpg"}})
	if !errors.Is(err, ErrUnknownImage) {
		t.Fatalf("expected ErrUnknownImage, got %v", err)
	}
}

func TestAddDishImages_PartialFailureKeepsUploaded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})
	cat, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Drinks"})
	dish, _ := env.svc.CreateDish(ctx, res.ID, cat.ID, DishInput{Name: "Latte"})

	files := [][]byte{pngBytes(t), []byte("broken"), pngBytes(t)}
	got, err := env.svc.AddDishImages(ctx, res.ID, cat.ID, dish.ID, files, nil)

	var partial *PartialUploadError
	if !errors.As(err, &partial) || partial.Saved != 1 {
		t.Fatalf("expected partial upload error with 1 saved, got %v", err)
	}
	if got == nil || len(got.Images) != 1 {
		t.Fatalf("expected dish with the first image saved, got %+v", got)
	}
}

func TestPublicMenu(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.svc.CreateRestaurant(ctx, RestaurantInput{Name: "Cafe"})
	res, _ = env.svc.SetRestaurantLogo(ctx, res.ID, pngBytes(t))

	inactive := false
	breakfast, _ := env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Breakfast", AvailableFrom: "06:00", AvailableTo: "11:00"})
	env.svc.CreateCategory(ctx, res.ID, CategoryInput{Name: "Hidden", IsActive: &inactive})

	env.svc.CreateDish(ctx, res.ID, breakfast.ID, DishInput{Name: "Eggs", Price: 3})
	env.svc.CreateDish(ctx, res.ID, breakfast.ID, DishInput{Name: "Off", IsActive: &inactive})

	env.svc.Clock(func() time.Time { return time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC) })
	m, err := env.svc.PublicMenu(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}

	if m.Restaurant.LogoURL != "https://cdn.test/"+res.LogoPath {
		t.Fatalf("unexpected logo url %q", m.Restaurant.LogoURL)
	}
	if len(m.Categories) != 1 {
		t.Fatalf("inactive category should be hidden, got %d", len(m.Categories))
	}
	if m.Categories[0].AvailableNow {
		t.Fatal("breakfast should not be available at 14:00")
	}
	if len(m.Categories[0].Dishes) != 1 || m.Categories[0].Dishes[0].Name != "Eggs" {
		t.Fatalf("unexpected dishes %+v", m.Categories[0].Dishes)
	}
}

func TestPublicMenu_ImportedRestaurantGetsDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	imported := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	env.store.Set(ctx, RestaurantsCollection, "r1", docstore.Doc{
		"name":       "Cafe",
		"nameAr":     "Cafe",
		"importedAt": imported,
		"updatedAt":  imported,
	}, true)

	m, err := env.svc.PublicMenu(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Restaurant.ThemeColor != "#1f2937" || m.Restaurant.GridColumns != 2 || m.Restaurant.Layout != LayoutList {
		t.Fatalf("expected display defaults, got %+v", m.Restaurant)
	}

	res, err := env.svc.GetRestaurant(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.CreatedAt.Equal(imported) {
		t.Fatalf("expected createdAt from importedAt, got %v", res.CreatedAt)
	}

	name := "Cafe Nero"
	if _, err := env.svc.UpdateRestaurant(ctx, "r1", RestaurantPatch{Name: &name}); err != nil {
		t.Fatalf("imported restaurant should be editable: %v", err)
	}
}
