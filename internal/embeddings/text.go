package embeddings

import (
	"context"
	"fmt"
	"strings"
)

// bilingualHint is appended to every item text before embedding. It keeps
// the shared embedding space aware of both campus languages so that
// semantically equivalent terms align even when the reporter and the
// finder wrote in different languages.
const bilingualHint = "Bilingual context: Use English and Hindi synonyms for better understanding. " +
	"Examples: wallet/बटुआ, purse/पर्स, glasses/चश्मा, bag/बैग, phone/फोन, ID card/पहचान पत्र."

// ItemText carries the free-text fields of an item that feed the text
// encoder.
type ItemText struct {
	Name        string
	SubCategory string
	Description string
	Location    string
}

// BuildItemText constructs the single text blob handed to the encoder.
// Fields are ordered by weight: name and sub-category carry the most
// signal, description next, location least. Returns "" when every field
// is blank; the bilingual hint alone never makes an item embeddable.
func BuildItemText(f ItemText) string {
	name := strings.TrimSpace(f.Name)
	subCategory := strings.TrimSpace(f.SubCategory)
	description := strings.TrimSpace(f.Description)
	location := strings.TrimSpace(f.Location)

	head := strings.TrimSpace(name + " " + subCategory)
	if head == "" && description == "" && location == "" {
		return ""
	}

	parts := make([]string, 0, 4)
	for _, p := range []string{head, description, location, bilingualHint} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(parts, " . ")
}

// EmbedItem embeds an item's text fields and L2-normalizes the result so
// cosine similarity reduces to a dot product downstream. An item with no
// text yields an empty vector and no encoder call.
//
// A vector whose length disagrees with the provider's declared dimension
// is an encoder failure: persisting it would break the stored
// length==dim invariant and poison the fixed-dimension index.
func EmbedItem(ctx context.Context, p Provider, f ItemText) ([]float32, error) {
	text := BuildItemText(f)
	if text == "" {
		return []float32{}, nil
	}

	vec, err := p.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if len(vec) != p.Dim() {
		return nil, fmt.Errorf("encoder %s returned %d dimensions, expected %d; check the configured embedding dim",
			p.ModelID(), len(vec), p.Dim())
	}

	return Normalize(vec), nil
}
