package menu

const RestaurantsCollection = "restaurants"

func CategoriesCollection(restaurantID string) string {
	return RestaurantsCollection + "/" + restaurantID + "/categories"
}

func DishesCollection(restaurantID, categoryID string) string {
	return CategoriesCollection(restaurantID) + "/" + categoryID + "/dishes"
}
