package images

import (
	"fmt"

	"github.com/google/uuid"
)

// Preset fixes how one kind of asset is resized, encoded and stored.
type Preset struct {
	Name         string
	MaxDimension int
	Quality      float64
	Format       Format
	ContentType  string
}

var (
	RestaurantLogo       = Preset{Name: "restaurant logo", MaxDimension: 1024, Quality: 0.8, Format: PNG, ContentType: "image/png"}
	RestaurantBackground = Preset{Name: "restaurant background", MaxDimension: 2048, Quality: 0.6, Format: JPEG, ContentType: "image/jpeg"}
	CategoryIcon         = Preset{Name: "category icon", MaxDimension: 1024, Quality: 0.8, Format: JPEG, ContentType: "image/jpeg"}
	DishPhoto            = Preset{Name: "dish photo", MaxDimension: 2048, Quality: 0.6, Format: JPEG, ContentType: "image/jpeg"}
	UserBackground       = Preset{Name: "user background", MaxDimension: 2048, Quality: 0.6, Format: JPEG, ContentType: "image/jpeg"}
)

func RestaurantLogoPath(restaurantID string) string {
	return fmt.Sprintf("restaurants/%s/logo_%s.png", restaurantID, uuid.NewString())
}

func RestaurantBackgroundPath(restaurantID string) string {
	return fmt.Sprintf("restaurants/%s/background_%s.jpg", restaurantID, uuid.NewString())
}

func CategoryIconPath(restaurantID, categoryID string) string {
	return fmt.Sprintf("restaurants/%s/categories/%s/icon.jpg", restaurantID, categoryID)
}

func DishPhotoPath(restaurantID, categoryID, dishID, batchID string, index int) string {
	return fmt.Sprintf("dishes/%s/%s/%s/%s_%d.jpg", restaurantID, categoryID, dishID, batchID, index)
}

func UserBackgroundPath(userID string) string {
	return fmt.Sprintf("users/%s/background_%s.jpg", userID, uuid.NewString())
}
