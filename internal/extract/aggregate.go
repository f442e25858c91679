package extract

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/ppiankov/chorus/internal/model"
)

const (
	// DefaultMergeThreshold is the similarity at which a claim joins an existing fact
	DefaultMergeThreshold = 0.72

	// DefaultMaxFacts caps the ranked fact list
	DefaultMaxFacts = 40

	// DefaultPartitionLimit caps consensus and unique facts independently
	DefaultPartitionLimit = 14
)

// Options tunes fact aggregation. Zero values select the defaults.
type Options struct {
	MergeThreshold float64
	MaxFacts       int
	FillerPhrases  []string
}

// Aggregator merges provider answers into a ranked list of facts
type Aggregator struct {
	threshold float64
	maxFacts  int
	fillers   []string
}

// NewAggregator creates an aggregator with the given options
func NewAggregator(opts Options) *Aggregator {
	a := &Aggregator{
		threshold: opts.MergeThreshold,
		maxFacts:  opts.MaxFacts,
		fillers:   opts.FillerPhrases,
	}
	if a.threshold <= 0 {
		a.threshold = DefaultMergeThreshold
	}
	if a.maxFacts <= 0 {
		a.maxFacts = DefaultMaxFacts
	}
	if a.fillers == nil {
		a.fillers = DefaultFillerPhrases
	}
	return a
}

// Claims extracts the claims of a single answer.
// Answers with an error or without text yield nothing.
func (a *Aggregator) Claims(answer model.ProviderAnswer) []model.Claim {
	if !answer.Usable() {
		return nil
	}
	var claims []model.Claim
	for sentence := range Sentences(answer.Text) {
		if isFiller(sentence, a.fillers) {
			continue
		}
		claims = append(claims, model.Claim{Text: sentence, Provider: answer.Provider})
	}
	return claims
}

// cluster keeps the token set of a fact's representative text next to the fact
type cluster struct {
	fact   model.Fact
	tokens map[string]struct{}
}

// Aggregate merges claims from answers, in the order given, into ranked facts.
// A claim joins the first fact whose representative text is similar enough;
// otherwise it starts a new fact. The result is sorted by corroboration, then
// by representative text length, and truncated to the configured maximum.
func (a *Aggregator) Aggregate(answers []model.ProviderAnswer) []model.Fact {
	var clusters []*cluster

	for _, answer := range answers {
		for _, claim := range a.Claims(answer) {
			tokens := Tokenize(claim.Text)
			merged := false
			for _, c := range clusters {
				if jaccard(tokens, c.tokens) >= a.threshold {
					c.fact.AddProvider(claim.Provider)
					merged = true
					break
				}
			}
			if merged {
				continue
			}
			clusters = append(clusters, &cluster{
				fact: model.Fact{
					ID:        fmt.Sprintf("f%d", len(clusters)+1),
					Text:      claim.Text,
					Providers: []model.ProviderName{claim.Provider},
				},
				tokens: tokens,
			})
		}
	}

	facts := make([]model.Fact, len(clusters))
	for i, c := range clusters {
		facts[i] = c.fact
	}
	RankFacts(facts)

	if len(facts) > a.maxFacts {
		facts = facts[:a.maxFacts]
	}
	return facts
}

// RankFacts sorts facts in place: more providers first, then longer text first.
// The sort is stable so equal facts keep their merge order.
func RankFacts(facts []model.Fact) {
	sort.SliceStable(facts, func(i, j int) bool {
		ci, cj := facts[i].Corroboration(), facts[j].Corroboration()
		if ci != cj {
			return ci > cj
		}
		return utf8.RuneCountInString(facts[i].Text) > utf8.RuneCountInString(facts[j].Text)
	})
}

// Partition splits ranked facts into consensus facts (two or more providers)
// and unique facts (a single provider), each capped at limit.
func Partition(facts []model.Fact, limit int) (consensus, unique []model.Fact) {
	if limit <= 0 {
		limit = DefaultPartitionLimit
	}
	for _, f := range facts {
		switch {
		case f.Corroboration() >= 2:
			if len(consensus) < limit {
				consensus = append(consensus, f)
			}
		case f.Corroboration() == 1:
			if len(unique) < limit {
				unique = append(unique, f)
			}
		}
	}
	return consensus, unique
}
