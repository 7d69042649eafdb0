// Package retrieval provides an in-process implementation of the
// core.Retriever contract: a naive keyword index over documentation and
// example page definitions. The scoring is term overlap, not embeddings;
// it is suitable for tests, demos and offline runs, and is swapped for a
// real vector index in production deployments.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pageforge-dev/pageforge/core"
)

// Document is one indexable snippet.
type Document struct {
	Source   string
	Category core.SourceCategory
	Content  string
}

// InMemoryIndex is a process-local core.Retriever. Safe for concurrent use;
// queries never fail, an empty index yields empty results so agents degrade
// gracefully.
type InMemoryIndex struct {
	mu   sync.RWMutex
	docs []Document
}

// NewInMemoryIndex builds an index over the given documents.
func NewInMemoryIndex(docs ...Document) *InMemoryIndex {
	return &InMemoryIndex{docs: docs}
}

// Add appends documents to the index.
func (i *InMemoryIndex) Add(docs ...Document) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs = append(i.docs, docs...)
}

// Query implements core.Retriever: ranks documents by query-term overlap and
// returns up to topK results with scores in (0, 1], descending.
func (i *InMemoryIndex) Query(ctx context.Context, text string, topK int) ([]core.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []core.RetrievalResult{}, nil
	}

	terms := tokenize(text)
	if len(terms) == 0 {
		return []core.RetrievalResult{}, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	results := make([]core.RetrievalResult, 0, len(i.docs))
	for _, doc := range i.docs {
		score := overlap(terms, doc)
		if score <= 0 {
			continue
		}
		results = append(results, core.RetrievalResult{
			Source:   doc.Source,
			Content:  doc.Content,
			Score:    score,
			Category: doc.Category,
		})
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	seen := map[string]bool{}
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// overlap scores a document as the fraction of query terms it contains,
// with a small boost for source-name matches.
func overlap(terms []string, doc Document) float64 {
	haystack := strings.ToLower(doc.Content)
	source := strings.ToLower(doc.Source)
	matched := 0
	boost := 0.0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			matched++
		}
		if strings.Contains(source, t) {
			boost = 0.1
		}
	}
	if matched == 0 && boost == 0 {
		return 0
	}
	score := float64(matched)/float64(len(terms)) + boost
	if score > 1 {
		score = 1
	}
	return score
}
