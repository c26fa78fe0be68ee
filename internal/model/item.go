package model

import (
	"encoding/json"
	"fmt"
)

// Item categories offered by the new-item form.
const (
	CategoryStationary  = "Stationary"
	CategoryKitchenware = "Kitchenware"
	CategoryAppliance   = "Appliance"
)

// Categories lists the item categories in form order.
var Categories = []string{CategoryStationary, CategoryKitchenware, CategoryAppliance}

// Item is an inventory record owned by the backend.
type Item struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
}

// UnmarshalJSON accepts both the short field names and the backend's
// itemName/itemCategory/itemPrice variants. Ids and prices may arrive as
// strings or numbers.
func (i *Item) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           json.RawMessage `json:"_id"`
		AltID        json.RawMessage `json:"id"`
		Name         string          `json:"name"`
		ItemName     string          `json:"itemName"`
		Category     string          `json:"category"`
		ItemCategory string          `json:"itemCategory"`
		Price        json.RawMessage `json:"price"`
		ItemPrice    json.RawMessage `json:"itemPrice"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding item: %w", err)
	}

	i.ID = firstNonEmpty(flexString(raw.ID), flexString(raw.AltID))
	i.Name = firstNonEmpty(raw.ItemName, raw.Name)
	i.Category = firstNonEmpty(raw.ItemCategory, raw.Category)
	i.Price = firstNonEmpty(flexString(raw.ItemPrice), flexString(raw.Price))
	return nil
}

// ItemForm is the new-item row of the item table.
type ItemForm struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
}

// flexString renders a JSON scalar as text: strings are unquoted, numbers and
// booleans keep their literal form, null and missing values become "".
func flexString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
