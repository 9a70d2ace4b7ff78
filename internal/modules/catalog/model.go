// README: Catalog documents referenced by orders: shops and menu items.
package catalog

import "skyeats/internal/types"

type Shop struct {
	ID          types.ID
	OwnerID     types.ID
	Name        string
	City        string
	State       string
	Address     string
	Coordinates types.Point
}

type Item struct {
	ID       types.ID
	ShopID   types.ID
	Name     string
	Image    string
	Category string
	FoodType string
	Price    int64
	Stock    int
}
