package validator

import (
	"testing"

	"github.com/aiotter/discord-amazon-url-shortener/internal/models"
)

func TestValidator_ProductLink(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		link    models.ProductLink
		wantErr bool
	}{
		{
			name:    "Valid product",
			link:    models.ProductLink{Kind: models.KindProduct, ProductID: "B08ZXMJCFR"},
			wantErr: false,
		},
		{
			name:    "Valid review",
			link:    models.ProductLink{Kind: models.KindCustomerReviews, ProductID: "R1A2B3C4D5E6F7"},
			wantErr: false,
		},
		{
			name:    "Short id",
			link:    models.ProductLink{Kind: models.KindProduct, ProductID: "B08"},
			wantErr: true,
		},
		{
			name:    "Id with slash",
			link:    models.ProductLink{Kind: models.KindProduct, ProductID: "B08ZXM/CFRX"},
			wantErr: true,
		},
		{
			name:    "Unknown kind",
			link:    models.ProductLink{Kind: "wishlist", ProductID: "B08ZXMJCFR"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateStruct(tt.link); (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_ProductData(t *testing.T) {
	v := New()

	if err := v.ValidateStruct(models.ProductData{}); err != nil {
		t.Errorf("empty ProductData should be valid, got %v", err)
	}
	if err := v.ValidateStruct(models.ProductData{ImageURL: "not a url"}); err == nil {
		t.Error("ProductData with malformed image URL should be invalid")
	}
}
