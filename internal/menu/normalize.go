package menu

import (
	"reflect"
	"strings"

	"menucms/internal/docstore"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Stored dish documents use a flat options encoding shared with another
// client:
//
//	optionsHeader, optionsHeaderAr, areOptionsRequired, maxOptionsSelection
//	options: [{id, name, nameAr, price}]
//
// The app works with Dish.Options (an OptionsGroup) instead. Normalize runs on
// every read and Denormalize on every write.

const (
	fieldOptions             = "options"
	fieldOptionsHeader       = "optionsHeader"
	fieldOptionsHeaderAr     = "optionsHeaderAr"
	fieldAreOptionsRequired  = "areOptionsRequired"
	fieldMaxOptionsSelection = "maxOptionsSelection"
)

// Normalize converts a raw dish document (flat or already nested) into a Dish.
func Normalize(raw docstore.Doc) Dish {
	d := Dish{
		ID:            str(raw, "id"),
		Name:          str(raw, "name"),
		NameAr:        str(raw, "nameAr"),
		Description:   str(raw, "description"),
		DescriptionAr: str(raw, "descriptionAr"),
		Price:         num(raw, "price"),
		IsActive:      boolean(raw, "isActive", true),
		Images:        stringList(raw, "images"),
		Allergens:     normalizeAllergens(raw["allergens"]),
		CreatedAt:     timestamp(raw, "createdAt"),
		UpdatedAt:     timestamp(raw, "updatedAt"),
	}
	if d.Images == nil {
		d.Images = []string{}
	}

	if isFlatOptions(raw) {
		d.Options = flatOptions(raw)
	} else if nested, ok := asMap(raw[fieldOptions]); ok {
		d.Options = nestedOptions(nested)
	}
	return d
}

func isFlatOptions(raw docstore.Doc) bool {
	if _, ok := raw[fieldOptionsHeader]; ok {
		return true
	}
	if _, ok := raw[fieldAreOptionsRequired]; ok {
		return true
	}
	_, ok := asList(raw[fieldOptions])
	return ok
}

func flatOptions(raw docstore.Doc) *OptionsGroup {
	list, _ := asList(raw[fieldOptions])
	return buildGroup(
		str(raw, fieldOptionsHeader),
		str(raw, fieldOptionsHeaderAr),
		boolean(raw, fieldAreOptionsRequired, false),
		intPtr(raw, fieldMaxOptionsSelection),
		list,
	)
}

func nestedOptions(m map[string]any) *OptionsGroup {
	list, _ := asList(m["items"])
	return buildGroup(
		str(m, "header"),
		str(m, "headerAr"),
		boolean(m, "required", false),
		intPtr(m, "maxSelection"),
		list,
	)
}

// buildGroup returns nil unless there is at least one item or a header.
func buildGroup(header, headerAr string, required bool, max *int, list []any) *OptionsGroup {
	items := make([]OptionItem, 0, len(list))
	for _, v := range list {
		switch it := v.(type) {
		case string:
			items = append(items, OptionItem{Name: it})
		default:
			m, ok := asMap(it)
			if !ok {
				continue
			}
			items = append(items, OptionItem{
				ID:     str(m, "id"),
				Name:   str(m, "name"),
				NameAr: str(m, "nameAr"),
				Price:  num(m, "price"),
			})
		}
	}

	if len(items) == 0 && strings.TrimSpace(header) == "" {
		return nil
	}
	return &OptionsGroup{
		Header:       header,
		HeaderAr:     headerAr,
		Required:     required,
		MaxSelection: max,
		Items:        items,
	}
}

func normalizeAllergens(v any) []Allergen {
	list, _ := asList(v)
	out := make([]Allergen, 0, len(list))
	for _, item := range list {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		out = append(out, Allergen{
			ID:     str(m, "id"),
			Name:   str(m, "name"),
			NameAr: str(m, "nameAr"),
		})
	}
	return out
}

// Denormalize converts a Dish into the flat stored document. Timestamps are
// left to the caller.
func Denormalize(d Dish) docstore.Doc {
	images := d.Images
	if images == nil {
		images = []string{}
	}

	doc := docstore.Doc{
		"name":          d.Name,
		"nameAr":        d.NameAr,
		"description":   d.Description,
		"descriptionAr": d.DescriptionAr,
		"price":         RoundPrice(d.Price),
		"isActive":      d.IsActive,
		"images":        images,
		"allergens":     DenormalizeAllergens(d.Allergens),
	}

	for k, v := range denormalizeOptions(d.Options) {
		doc[k] = v
	}
	return Sanitize(doc)
}

func denormalizeOptions(g *OptionsGroup) docstore.Doc {
	empty := docstore.Doc{
		fieldOptions:             nil,
		fieldOptionsHeader:       nil,
		fieldOptionsHeaderAr:     nil,
		fieldAreOptionsRequired:  nil,
		fieldMaxOptionsSelection: nil,
	}
	if g == nil {
		return empty
	}

	items := make([]any, 0, len(g.Items))
	for _, it := range g.Items {
		if strings.TrimSpace(it.Name) == "" && strings.TrimSpace(it.NameAr) == "" {
			continue
		}
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		items = append(items, map[string]any{
			"id":     id,
			"name":   it.Name,
			"nameAr": it.NameAr,
			"price":  RoundPrice(it.Price),
		})
	}
	if len(items) == 0 {
		return empty
	}

	var max any
	if g.MaxSelection != nil {
		max = *g.MaxSelection
	}
	return docstore.Doc{
		fieldOptions:             items,
		fieldOptionsHeader:       g.Header,
		fieldOptionsHeaderAr:     g.HeaderAr,
		fieldAreOptionsRequired:  g.Required,
		fieldMaxOptionsSelection: max,
	}
}

// DenormalizeAllergens drops unnamed entries and fills in missing ids from
// the English name.
func DenormalizeAllergens(list []Allergen) []any {
	out := make([]any, 0, len(list))
	for _, a := range list {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		id := a.ID
		if id == "" {
			id = AllergenID(name)
		}
		out = append(out, map[string]any{
			"id":     id,
			"name":   name,
			"nameAr": strings.TrimSpace(a.NameAr),
		})
	}
	return out
}

// AllergenID derives the stable id of an allergen from its English name.
func AllergenID(name string) string {
	if id := slug.Make(name); id != "" {
		return id
	}
	return uuid.NewString()
}

// Sanitize walks a document and replaces values the store cannot hold:
// typed nil pointers, maps and slices become null, funcs and channels are
// dropped.
func Sanitize(doc docstore.Doc) docstore.Doc {
	out := make(docstore.Doc, len(doc))
	for k, v := range doc {
		if clean, ok := sanitizeValue(v); ok {
			out[k] = clean
		}
	}
	return out
}

func sanitizeValue(v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch val := v.(type) {
	case docstore.Doc:
		return Sanitize(val), true
	case map[string]any:
		return map[string]any(Sanitize(val)), true
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if clean, ok := sanitizeValue(item); ok {
				out = append(out, clean)
			}
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, false
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, true
		}
		return sanitizeValue(rv.Elem().Interface())
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return nil, true
		}
	}
	return v, true
}
