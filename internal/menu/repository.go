package menu

import (
	"context"

	"menucms/internal/docstore"
)

// Repository defines all document operations for the menu tree.
// Update methods merge fields into an existing document.
type Repository interface {

	// -------------------------------
	// Restaurants
	// -------------------------------

	GetRestaurant(ctx context.Context, restaurantID string) (*Restaurant, error)
	ListRestaurants(ctx context.Context) ([]Restaurant, error)
	CreateRestaurant(ctx context.Context, fields docstore.Doc) (string, error)
	UpdateRestaurant(ctx context.Context, restaurantID string, fields docstore.Doc) error
	DeleteRestaurant(ctx context.Context, restaurantID string) error

	// -------------------------------
	// Categories
	// -------------------------------

	GetCategory(ctx context.Context, restaurantID, categoryID string) (*Category, error)
	ListCategories(ctx context.Context, restaurantID string) ([]Category, error)
	CreateCategory(ctx context.Context, restaurantID string, fields docstore.Doc) (string, error)
	UpdateCategory(ctx context.Context, restaurantID, categoryID string, fields docstore.Doc) error
	DeleteCategory(ctx context.Context, restaurantID, categoryID string) error

	// -------------------------------
	// Dishes (normalized on read)
	// -------------------------------

	GetDish(ctx context.Context, restaurantID, categoryID, dishID string) (*Dish, error)
	ListDishes(ctx context.Context, restaurantID, categoryID string) ([]Dish, error)
	CreateDish(ctx context.Context, restaurantID, categoryID string, fields docstore.Doc) (string, error)
	UpdateDish(ctx context.Context, restaurantID, categoryID, dishID string, fields docstore.Doc) error
	DeleteDish(ctx context.Context, restaurantID, categoryID, dishID string) error
}
