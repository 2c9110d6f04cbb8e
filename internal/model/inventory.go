package model

type InventoryItem struct {
	ID              string `json:"id"`
	HarmonizedCode  string `json:"harmonized_code"`
	CountryOfOrigin string `json:"country_of_origin"`
}

type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
