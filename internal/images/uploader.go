package images

import (
	"context"
	"fmt"

	"menucms/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProgressFunc reports completed out of total steps.
type ProgressFunc func(completed, total int, message string)

type Uploader struct {
	blobs storage.BlobStore
	log   logrus.FieldLogger
}

func NewUploader(blobs storage.BlobStore, log logrus.FieldLogger) *Uploader {
	return &Uploader{blobs: blobs, log: log}
}

// Upload processes data with the preset and stores it at path.
func (u *Uploader) Upload(ctx context.Context, preset Preset, path string, data []byte) error {
	if err := CheckSize(int64(len(data))); err != nil {
		return err
	}

	out, err := Process(data, preset.MaxDimension, preset.Quality, preset.Format)
	if err != nil {
		return fmt.Errorf("%s: %w", preset.Name, err)
	}

	if err := u.blobs.Upload(ctx, path, preset.ContentType, out); err != nil {
		return fmt.Errorf("%s: %w", preset.Name, err)
	}

	u.log.WithFields(logrus.Fields{
		"path":  path,
		"bytes": len(out),
	}).Debugf("uploaded %s", preset.Name)
	return nil
}

func (u *Uploader) UploadRestaurantLogo(ctx context.Context, restaurantID string, data []byte) (string, error) {
	path := RestaurantLogoPath(restaurantID)
	return path, u.Upload(ctx, RestaurantLogo, path, data)
}

func (u *Uploader) UploadRestaurantBackground(ctx context.Context, restaurantID string, data []byte) (string, error) {
	path := RestaurantBackgroundPath(restaurantID)
	return path, u.Upload(ctx, RestaurantBackground, path, data)
}

func (u *Uploader) UploadCategoryIcon(ctx context.Context, restaurantID, categoryID string, data []byte) (string, error) {
	path := CategoryIconPath(restaurantID, categoryID)
	return path, u.Upload(ctx, CategoryIcon, path, data)
}

func (u *Uploader) UploadUserBackground(ctx context.Context, userID string, data []byte) (string, error) {
	path := UserBackgroundPath(userID)
	return path, u.Upload(ctx, UserBackground, path, data)
}

// UploadDishImages uploads files one at a time under a shared batch id so
// progress is reported in order. On the first failure it returns the paths
// stored so far together with the error.
func (u *Uploader) UploadDishImages(
	ctx context.Context,
	restaurantID, categoryID, dishID string,
	files [][]byte,
	onProgress ProgressFunc,
) ([]string, error) {
	if onProgress == nil {
		onProgress = func(int, int, string) {}
	}

	batchID := uuid.NewString()
	total := len(files)
	paths := make([]string, 0, total)

	for i, data := range files {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		onProgress(i, total, fmt.Sprintf("Uploading image %d of %d", i+1, total))

		path := DishPhotoPath(restaurantID, categoryID, dishID, batchID, i)
		if err := u.Upload(ctx, DishPhoto, path, data); err != nil {
			return paths, fmt.Errorf("image %d of %d: %w", i+1, total, err)
		}
		paths = append(paths, path)

		onProgress(i+1, total, fmt.Sprintf("Uploaded image %d of %d", i+1, total))
	}
	return paths, nil
}
