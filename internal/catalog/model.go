package catalog

// Variant is the sellable unit of a wax product (scent/size combination).
// The checkout snapshot copies name, weight and price onto the order item,
// so later catalog edits never rewrite history.
type Variant struct {
	ID          string
	ProductID   string
	ProductName string
	Name        string
	Price       int64
	WeightGrams int
	Stock       int
	Active      bool
}

// DisplayName is what lands on the order item and the courier manifest.
func (v *Variant) DisplayName() string {
	if v.Name == "" {
		return v.ProductName
	}
	return v.ProductName + " - " + v.Name
}
