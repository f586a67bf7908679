package survey

// ConstructDefinition names a composite score and the items averaged into it.
type ConstructDefinition struct {
	Name  string   `json:"name" mapstructure:"name"`
	Items []string `json:"items" mapstructure:"items"`
}

// DefaultConstructs is the construct table used when configuration supplies none.
func DefaultConstructs() []ConstructDefinition {
	return []ConstructDefinition{
		{Name: "Scarcity", Items: []string{"promo_deadline_focus", "limited_stock_urgency", "flash_sale_pressure", "last_chance_purchase"}},
		{Name: "Serendipity", Items: []string{"unexpected_find", "browsing_discovery", "live_stream_discovery", "recommended_surprise"}},
		{Name: "Trust", Items: []string{"trust_no_risk", "trust_seller_reviews", "trust_secure_payment", "trust_return_policy"}},
		{Name: "Price", Items: []string{"price_discount_appeal", "price_free_shipping", "price_voucher_use"}},
		{Name: "ImpulseBuying", Items: []string{"impulse_unplanned", "impulse_spontaneous", "impulse_cannot_resist", "impulse_buy_now"}},
	}
}

// ValidateDefinitions checks definitions on their own, without a schema.
func ValidateDefinitions(defs []ConstructDefinition) error {
	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return &SchemaError{Reason: "construct name is empty"}
		}
		if _, dup := seen[d.Name]; dup {
			return &SchemaError{Construct: d.Name, Reason: "duplicate construct name"}
		}
		seen[d.Name] = struct{}{}

		if len(d.Items) == 0 {
			return &SchemaError{Construct: d.Name, Reason: "construct has no items"}
		}
		items := make(map[string]struct{}, len(d.Items))
		for _, item := range d.Items {
			if _, dup := items[item]; dup {
				return &SchemaError{Construct: d.Name, Field: item, Reason: "item listed twice"}
			}
			items[item] = struct{}{}
		}
	}
	return nil
}

// CheckSchema verifies every referenced item exists in the schema and is numeric.
func CheckSchema(schema Schema, defs []ConstructDefinition) error {
	if err := ValidateDefinitions(defs); err != nil {
		return err
	}
	for _, d := range defs {
		if _, clash := schema.Lookup(d.Name); clash {
			return &SchemaError{Construct: d.Name, Reason: "construct name shadows an input column"}
		}
		for _, item := range d.Items {
			col, ok := schema.Lookup(item)
			if !ok {
				return &SchemaError{Construct: d.Name, Field: item, Reason: "field not in dataset schema"}
			}
			if col.Kind != KindNumeric {
				return &SchemaError{Construct: d.Name, Field: item, Reason: "field is not numeric"}
			}
		}
	}
	return nil
}
