package model

// RetrievalSource is one web search result supplied as citable evidence
type RetrievalSource struct {
	ID      int    `json:"id"`      // 1-based, assigned in result order; the citation key
	Title   string `json:"title"`   // Result title, may be empty
	URL     string `json:"url"`     // Result URL
	Snippet string `json:"snippet"` // Plain-text content excerpt
}

// SourceIDs returns the set of ids present in sources
func SourceIDs(sources []RetrievalSource) map[int]struct{} {
	ids := make(map[int]struct{}, len(sources))
	for _, s := range sources {
		ids[s.ID] = struct{}{}
	}
	return ids
}
