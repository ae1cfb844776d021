package scraper

import (
	"encoding/json"
	"fmt"
	"os"
)

// SelectorConfig describes where each product field lives on a product page.
type SelectorConfig struct {
	Product ProductSelectors `json:"product"`
}

type ProductSelectors struct {
	// Price candidates are tried in order; the buy box renders the price
	// through different fragments depending on the offer type.
	Price  []string `json:"price"`
	Title  string   `json:"title"`
	Image  string   `json:"image"`  // e.g., "#landingImage,#imgBlkFront"
	Rating string   `json:"rating"` // e.g., `span[data-hook="rating-out-of-text"]`
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}

	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	if config.Product.Title == "" || len(config.Product.Price) == 0 {
		return SelectorConfig{}, fmt.Errorf("selector config is missing product title or price selectors")
	}

	return config, nil
}

// DefaultSelectors returns the fallback configuration if no JSON file is loaded.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Product: ProductSelectors{
			Price: []string{
				"#priceblock_ourprice",
				"#priceblock_dealprice",
				"#newBuyBoxPrice",
				"#kindle-price",
				"#price_inside_buybox",
				"#price",
				".slot-price",
			},
			Title:  "#productTitle",
			Image:  "#landingImage,#imgBlkFront,#ebooksImgBlkFront",
			Rating: `span[data-hook="rating-out-of-text"]`,
		},
	}
}
