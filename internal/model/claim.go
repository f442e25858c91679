package model

// Claim is an atomic, sentence-sized assertion taken from one provider answer
type Claim struct {
	Text     string       `json:"text"`     // Normalized sentence text
	Provider ProviderName `json:"provider"` // Provider whose answer produced it
}

// Fact is a cluster of claims judged to express the same assertion
type Fact struct {
	ID        string         `json:"id"`        // Assigned in creation order (f1, f2, ...)
	Text      string         `json:"text"`      // Representative text (first claim of the cluster)
	Providers []ProviderName `json:"providers"` // Corroborating providers, unique, in merge order
}

// Corroboration returns the number of distinct providers behind the fact
func (f Fact) Corroboration() int {
	return len(f.Providers)
}

// HasProvider reports whether the provider already contributed to the fact
func (f Fact) HasProvider(p ProviderName) bool {
	for _, existing := range f.Providers {
		if existing == p {
			return true
		}
	}
	return false
}

// AddProvider appends p unless it is already present
func (f *Fact) AddProvider(p ProviderName) {
	if !f.HasProvider(p) {
		f.Providers = append(f.Providers, p)
	}
}
