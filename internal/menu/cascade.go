package menu

import (
	"context"
	"errors"
	"fmt"

	"menucms/internal/storage"

	"github.com/sirupsen/logrus"
)

// ChildResult is the outcome of deleting one owned document.
type ChildResult struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// BlobResult is the outcome of deleting one blob. Missing blobs count as
// removed.
type BlobResult struct {
	Path    string `json:"path"`
	Missing bool   `json:"missing,omitempty"`
	Error   string `json:"error,omitempty"`
}

type DeleteReport struct {
	Children []ChildResult `json:"children"`
	Blobs    []BlobResult  `json:"blobs"`
}

func (r *DeleteReport) merge(other *DeleteReport) {
	r.Children = append(r.Children, other.Children...)
	r.Blobs = append(r.Blobs, other.Blobs...)
}

// Failed reports whether any child or blob cleanup failed.
func (r *DeleteReport) Failed() bool {
	for _, c := range r.Children {
		if c.Error != "" {
			return true
		}
	}
	for _, b := range r.Blobs {
		if b.Error != "" {
			return true
		}
	}
	return false
}

// Deleter removes restaurants, categories and dishes together with everything
// they own. Blob paths are always read before the owning document is deleted,
// and blobs are only removed once the document is gone.
type Deleter struct {
	repo  Repository
	blobs storage.BlobStore
	log   logrus.FieldLogger
}

func NewDeleter(repo Repository, blobs storage.BlobStore, log logrus.FieldLogger) *Deleter {
	return &Deleter{repo: repo, blobs: blobs, log: log}
}

func (d *Deleter) DeleteRestaurant(ctx context.Context, restaurantID string) (*DeleteReport, error) {
	res, err := d.repo.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	paths := []string{res.LogoPath, res.BackgroundPath}

	report := &DeleteReport{Children: []ChildResult{}, Blobs: []BlobResult{}}

	categories, err := d.repo.ListCategories(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list categories of %s: %w", restaurantID, err)
	}
	for _, c := range categories {
		child, err := d.DeleteCategory(ctx, restaurantID, c.ID)
		result := ChildResult{Kind: "category", ID: c.ID}
		if err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"restaurant_id": restaurantID,
				"category_id":   c.ID,
			}).Warn("category delete failed")
			result.Error = err.Error()
		} else {
			report.merge(child)
		}
		report.Children = append(report.Children, result)
	}

	if err := d.repo.DeleteRestaurant(ctx, restaurantID); err != nil {
		return report, fmt.Errorf("delete restaurant %s: %w", restaurantID, err)
	}

	report.Blobs = append(report.Blobs, d.deleteBlobs(ctx, paths)...)
	d.log.WithField("restaurant_id", restaurantID).Info("restaurant deleted")
	return report, nil
}

func (d *Deleter) DeleteCategory(ctx context.Context, restaurantID, categoryID string) (*DeleteReport, error) {
	cat, err := d.repo.GetCategory(ctx, restaurantID, categoryID)
	if err != nil {
		return nil, err
	}
	paths := []string{cat.IconPath}

	report := &DeleteReport{Children: []ChildResult{}, Blobs: []BlobResult{}}

	dishes, err := d.repo.ListDishes(ctx, restaurantID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list dishes of %s: %w", categoryID, err)
	}
	for _, dish := range dishes {
		child, err := d.DeleteDish(ctx, restaurantID, categoryID, dish.ID)
		result := ChildResult{Kind: "dish", ID: dish.ID}
		if err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"category_id": categoryID,
				"dish_id":     dish.ID,
			}).Warn("dish delete failed")
			result.Error = err.Error()
		} else {
			report.merge(child)
		}
		report.Children = append(report.Children, result)
	}

	if err := d.repo.DeleteCategory(ctx, restaurantID, categoryID); err != nil {
		return report, fmt.Errorf("delete category %s: %w", categoryID, err)
	}

	report.Blobs = append(report.Blobs, d.deleteBlobs(ctx, paths)...)
	return report, nil
}

func (d *Deleter) DeleteDish(ctx context.Context, restaurantID, categoryID, dishID string) (*DeleteReport, error) {
	dish, err := d.repo.GetDish(ctx, restaurantID, categoryID, dishID)
	if err != nil {
		return nil, err
	}
	paths := append([]string{}, dish.Images...)

	if err := d.repo.DeleteDish(ctx, restaurantID, categoryID, dishID); err != nil {
		return nil, fmt.Errorf("delete dish %s: %w", dishID, err)
	}

	return &DeleteReport{
		Children: []ChildResult{},
		Blobs:    d.deleteBlobs(ctx, paths),
	}, nil
}

// deleteBlobs goes through every path even when some fail. Failures are
// logged, never returned.
func (d *Deleter) deleteBlobs(ctx context.Context, paths []string) []BlobResult {
	out := make([]BlobResult, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		r := BlobResult{Path: p}
		err := d.blobs.Delete(ctx, p)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrNotFound):
			r.Missing = true
		default:
			d.log.WithError(err).WithField("path", p).Warn("blob delete failed")
			r.Error = err.Error()
		}
		out = append(out, r)
	}
	return out
}
