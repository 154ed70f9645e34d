package domain

import (
	"encoding/json"
	"strings"
)

// MaxCheckoutMetadataLength caps the serialized cart token attached to a
// payment session. The payment processor limits metadata value sizes, so the
// token is truncated (not rejected) past this point. Truncation is lossy:
// lines past the cut are absent from the reconstructed cart, which is why the
// cap is generous relative to realistic cart sizes.
const MaxCheckoutMetadataLength = 450

// MetadataItem is a single cart tuple carried across the payment hand-off.
type MetadataItem struct {
	ProductID string
	VariantID string
	Quantity  int
}

type compactMetadataItem struct {
	P string `json:"p"`
	V string `json:"v"`
	Q int    `json:"q"`
}

type looseMetadataItem struct {
	P         string          `json:"p"`
	V         string          `json:"v"`
	Q         json.RawMessage `json:"q"`
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId"`
	Quantity  json.RawMessage `json:"quantity"`
}

// EncodeCheckoutMetadata serializes cart lines into the compact short-key
// token, truncating the serialized form at MaxCheckoutMetadataLength.
func EncodeCheckoutMetadata(lines []CartLine) string {
	compact := make([]compactMetadataItem, 0, len(lines))
	for _, line := range lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		compact = append(compact, compactMetadataItem{
			P: line.ProductID,
			V: line.VariantID,
			Q: qty,
		})
	}

	data, err := json.Marshal(compact)
	if err != nil {
		return ""
	}
	token := string(data)
	if len(token) > MaxCheckoutMetadataLength {
		token = token[:MaxCheckoutMetadataLength]
	}
	return token
}

// DecodeCheckoutMetadata reconstructs cart tuples from a metadata token.
// Both the compact short keys and the legacy long keys are accepted. A token
// that was truncated mid-object decodes to the longest valid prefix instead
// of failing outright; tuples without a product ID are dropped.
func DecodeCheckoutMetadata(token string) []MetadataItem {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	raw, ok := decodeRawItems(token)
	if !ok {
		// Truncated tail: cut back to the last complete object and retry.
		if idx := strings.LastIndex(token, "}"); idx >= 0 {
			raw, _ = decodeRawItems(token[:idx+1] + "]")
		}
	}

	items := make([]MetadataItem, 0, len(raw))
	for _, entry := range raw {
		productID := strings.TrimSpace(firstNonEmpty(entry.ProductID, entry.P))
		if productID == "" {
			continue
		}
		qty := decodeQuantity(entry.Quantity)
		if qty < 1 {
			qty = decodeQuantity(entry.Q)
		}
		if qty < 1 {
			qty = 1
		}
		items = append(items, MetadataItem{
			ProductID: productID,
			VariantID: strings.TrimSpace(firstNonEmpty(entry.VariantID, entry.V)),
			Quantity:  qty,
		})
	}
	return items
}

func decodeRawItems(token string) ([]looseMetadataItem, bool) {
	var raw []looseMetadataItem
	if err := json.Unmarshal([]byte(token), &raw); err != nil {
		return nil, false
	}
	return raw, true
}

func decodeQuantity(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var asInt int
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return asInt
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		var parsed int
		if err := json.Unmarshal([]byte(strings.TrimSpace(asString)), &parsed); err == nil {
			return parsed
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
