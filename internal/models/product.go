package models

// LinkKind tags which kind of vendor page a link points at.
type LinkKind string

const (
	KindProduct         LinkKind = "product"
	KindCustomerReviews LinkKind = "customer-reviews"
	KindProductReviews  LinkKind = "product-reviews"
)

// ProductLink is the canonical identity extracted from a vendor URL.
type ProductLink struct {
	Kind      LinkKind `validate:"required,oneof=product customer-reviews product-reviews"`
	ProductID string   `validate:"required,min=10,excludesall=/?"`
}

// ProductData holds what could be scraped from a product page.
// An empty string means the page did not expose that field.
type ProductData struct {
	Title    string `json:"title,omitempty"`
	Price    string `json:"price,omitempty"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
	Rating   string `json:"rating,omitempty"`
}

// IsEmpty reports whether no field was found on the page.
func (d ProductData) IsEmpty() bool {
	return d.Title == "" && d.Price == "" && d.ImageURL == "" && d.Rating == ""
}
