package trust

import "github.com/lestrrat-go/jwx/v2/jwk"

// KeySummary is the caller-safe view of one key set entry. Key material
// itself is never exposed.
type KeySummary struct {
	KeyID     string `json:"key_id"`
	Algorithm string `json:"algorithm,omitempty"`
	Type      string `json:"type"`
	Use       string `json:"use,omitempty"`
}

// Summarize renders a key set as summaries, in set order.
func Summarize(set jwk.Set) []KeySummary {
	summaries := make([]KeySummary, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		summaries = append(summaries, KeySummary{
			KeyID:     key.KeyID(),
			Algorithm: key.Algorithm().String(),
			Type:      string(key.KeyType()),
			Use:       key.KeyUsage(),
		})
	}
	return summaries
}
