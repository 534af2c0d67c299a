package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"menucms/internal/auth"
	"menucms/internal/docstore"
	"menucms/internal/menu"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FailurePolicy decides what happens when a category batch fails to commit.
type FailurePolicy string

const (
	// AbortOnError stops at the first failed category. Categories committed
	// before it stay in place.
	AbortOnError FailurePolicy = "abort"
	// ContinueOnError skips the failed category and reports every failure
	// once all categories were attempted.
	ContinueOnError FailurePolicy = "continue"
)

func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", AbortOnError:
		return AbortOnError, nil
	case ContinueOnError:
		return ContinueOnError, nil
	}
	return "", fmt.Errorf("unknown import failure policy %q", s)
}

// ProgressFunc receives completed and total steps with a status line.
type ProgressFunc func(completed, total int, message string)

type Result struct {
	RestaurantID  string `json:"restaurantId"`
	CategoryCount int    `json:"categoryCount"`
	DishCount     int    `json:"dishCount"`
}

// CategoryError names the category whose batch could not be committed.
type CategoryError struct {
	Index      int
	CategoryID string
	Name       string
	Err        error
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("category %d (%s %q) failed: %v", e.Index+1, e.CategoryID, e.Name, e.Err)
}

func (e *CategoryError) Unwrap() error { return e.Err }

type Writer struct {
	store  docstore.Store
	policy FailurePolicy
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewWriter(store docstore.Store, policy FailurePolicy, log logrus.FieldLogger) *Writer {
	if policy == "" {
		policy = AbortOnError
	}
	return &Writer{store: store, policy: policy, log: log, now: time.Now}
}

// Import writes the menu in 1 + len(categories) atomic batches. The restaurant
// batch always commits first. Every write is a merge keyed by the ids in the
// menu, so re-running an import updates documents instead of duplicating them.
// Cancellation through ctx is honoured between batches only.
func (w *Writer) Import(ctx context.Context, m *Menu, userID string, onProgress ProgressFunc) (Result, error) {
	if onProgress == nil {
		onProgress = func(int, int, string) {}
	}

	result := Result{RestaurantID: m.ID}
	total := 1 + len(m.Categories)
	log := w.log.WithFields(logrus.Fields{
		"restaurant_id": m.ID,
		"user_id":       userID,
	})

	if err := ctx.Err(); err != nil {
		return result, err
	}
	// A batch that started committing runs to completion. Cancellation is
	// only observed between batches.
	commitCtx := context.WithoutCancel(ctx)

	onProgress(0, total, fmt.Sprintf("Saving restaurant %s", m.NameEn))
	if err := w.restaurantBatch(m, userID).Commit(commitCtx); err != nil {
		return result, fmt.Errorf("restaurant %s: %w", m.ID, err)
	}
	onProgress(1, total, fmt.Sprintf("Saved restaurant %s", m.NameEn))

	var failures []error
	for i, c := range m.Categories {
		if err := ctx.Err(); err != nil {
			log.WithField("completed", result.CategoryCount).Info("import cancelled")
			return result, err
		}

		onProgress(1+i, total, fmt.Sprintf("Importing category %s (%d dishes)", label(c.NameEn, c.ID), len(c.Dishes)))

		if err := w.categoryBatch(m.ID, i, c).Commit(commitCtx); err != nil {
			catErr := &CategoryError{Index: i, CategoryID: c.ID, Name: c.NameEn, Err: err}
			log.WithError(err).WithField("category_id", c.ID).Warn("category batch failed")

			if w.policy == AbortOnError {
				return result, catErr
			}
			failures = append(failures, catErr)
			onProgress(2+i, total, fmt.Sprintf("Skipped category %s", label(c.NameEn, c.ID)))
			continue
		}

		result.CategoryCount++
		result.DishCount += len(c.Dishes)
		onProgress(2+i, total, fmt.Sprintf("Imported category %s", label(c.NameEn, c.ID)))
	}

	log.WithFields(logrus.Fields{
		"categories": result.CategoryCount,
		"dishes":     result.DishCount,
		"failed":     len(failures),
	}).Info("menu imported")

	return result, errors.Join(failures...)
}

func (w *Writer) restaurantBatch(m *Menu, userID string) *docstore.Batch {
	now := w.now().UTC()
	b := docstore.NewBatch(w.store).Merge(menu.RestaurantsCollection, m.ID, docstore.Doc{
		"name":       m.NameEn,
		"nameAr":     orDefault(m.NameAr, m.NameEn),
		"updatedAt":  now,
		"importedAt": now,
	})
	if userID != "" {
		b.Update(auth.UsersCollection, userID, docstore.Doc{
			"restaurantIds": docstore.Union(m.ID),
		})
	}
	return b
}

func (w *Writer) categoryBatch(restaurantID string, index int, c Category) *docstore.Batch {
	now := w.now().UTC()
	b := docstore.NewBatch(w.store).Merge(menu.CategoriesCollection(restaurantID), c.ID, docstore.Doc{
		"name":      c.NameEn,
		"nameAr":    orDefault(c.NameAr, c.NameEn),
		"order":     index,
		"isActive":  true,
		"updatedAt": now,
	})

	dishes := menu.DishesCollection(restaurantID, c.ID)
	for _, d := range c.Dishes {
		doc := DishDoc(d)
		doc["updatedAt"] = now
		b.Merge(dishes, d.ID, doc)
	}
	return b
}

// DishDoc builds the stored dish fields for an imported dish. Arabic fields
// are omitted when the import has none. Without options the flat option
// metadata is removed so a re-import cannot leave a stale header behind.
func DishDoc(d Dish) docstore.Doc {
	price := 0.0
	if d.Price != nil {
		price = *d.Price
	}
	active := true
	if d.IsActive != nil {
		active = *d.IsActive
	}

	doc := docstore.Doc{
		"name":      d.NameEn,
		"price":     menu.RoundPrice(price),
		"isActive":  active,
		"allergens": importAllergens(d.AllergensEn, d.AllergensAr),
		"options":   nil,
	}
	if d.NameAr != nil {
		doc["nameAr"] = *d.NameAr
	}
	if d.DescriptionEn != nil {
		doc["description"] = *d.DescriptionEn
	}
	if d.DescriptionAr != nil {
		doc["descriptionAr"] = *d.DescriptionAr
	}

	if len(d.Options) > 0 {
		items := make([]any, 0, len(d.Options))
		for _, o := range d.Options {
			item := map[string]any{
				"id":    uuid.NewString(),
				"name":  o.NameEn,
				"price": 0.0,
			}
			if o.NameAr != nil {
				item["nameAr"] = *o.NameAr
			}
			if o.Price != nil {
				item["price"] = menu.RoundPrice(*o.Price)
			}
			items = append(items, item)
		}
		doc["options"] = items
		doc["optionsHeader"] = deref(d.OptionsHeaderEn)
		doc["optionsHeaderAr"] = deref(d.OptionsHeaderAr)
		doc["areOptionsRequired"] = d.AreOptionsRequired != nil && *d.AreOptionsRequired
		if d.MaxOptionsSelection != nil {
			doc["maxOptionsSelection"] = *d.MaxOptionsSelection
		} else {
			doc["maxOptionsSelection"] = nil
		}
		return menu.Sanitize(doc)
	}

	doc = menu.Sanitize(doc)
	for _, k := range staleOptionFields {
		doc[k] = docstore.DeleteField
	}
	return doc
}

var staleOptionFields = []string{"optionsHeader", "optionsHeaderAr", "areOptionsRequired", "maxOptionsSelection"}

// importAllergens pairs English and Arabic names by position. Arabic names
// without an English counterpart are dropped.
func importAllergens(en, ar []string) []any {
	out := make([]any, 0, len(en))
	for i, name := range en {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		a := map[string]any{
			"id":   menu.AllergenID(name),
			"name": name,
		}
		if i < len(ar) {
			a["nameAr"] = strings.TrimSpace(ar[i])
		}
		out = append(out, a)
	}
	return out
}

func orDefault(v *string, def string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def
	}
	return *v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
