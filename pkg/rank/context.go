package rank

import (
	"math"
	"sync"

	"github.com/charmbracelet/log"
)

// DefaultMaxContexts bounds the context keys remembered by a ContextModel.
const DefaultMaxContexts = 20000

type contextEntry struct {
	words    map[string]float64
	lastUsed int64
}

// ContextModel remembers which words followed which context keys. Keys are
// evicted least-recently-boosted first once maxContexts is reached. Reads never
// touch recency, so scoring stays deterministic for a given model state.
type ContextModel struct {
	contexts    map[string]*contextEntry
	maxContexts int
	accessCount int64
	mu          sync.RWMutex
}

// NewContextModel creates an empty model.
func NewContextModel(maxContexts int) *ContextModel {
	if maxContexts < 1 {
		maxContexts = DefaultMaxContexts
	}
	return &ContextModel{
		contexts:    make(map[string]*contextEntry),
		maxContexts: maxContexts,
	}
}

// Boost adds amount to (key, word) for every key.
func (m *ContextModel) Boost(keys []string, word string, amount float64) {
	if len(keys) == 0 || word == "" || amount <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		entry, ok := m.contexts[key]
		if !ok {
			if len(m.contexts) >= m.maxContexts {
				m.evictLRU()
			}
			entry = &contextEntry{words: make(map[string]float64, 1)}
			m.contexts[key] = entry
		}
		entry.words[word] += amount
		entry.lastUsed = m.nextAccessTime()
	}
}

// Lookup returns the stored boost for (key, word).
func (m *ContextModel) Lookup(key, word string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if entry, ok := m.contexts[key]; ok {
		return entry.words[word]
	}
	return 0
}

// Score sums the boosts of word under keys, weighting key i (i+1 tokens long)
// by KeyWeight(i+1). Keys must be ordered shortest first, as ContextKeys
// returns them.
func (m *ContextModel) Score(keys []string, word string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	score := 0.0
	for i, key := range keys {
		entry, ok := m.contexts[key]
		if !ok {
			continue
		}
		score += entry.words[word] * KeyWeight(i+1)
	}
	return score
}

// Len returns the number of remembered context keys.
func (m *ContextModel) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contexts)
}

// Stats reports model size.
func (m *ContextModel) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pairs := 0
	for _, entry := range m.contexts {
		pairs += len(entry.words)
	}
	return map[string]int{
		"contextKeys":  len(m.contexts),
		"contextPairs": pairs,
		"maxContexts":  m.maxContexts,
	}
}

func (m *ContextModel) nextAccessTime() int64 {
	m.accessCount++
	return m.accessCount
}

func (m *ContextModel) evictLRU() {
	var oldestKey string
	var oldestTime int64 = math.MaxInt64

	for key, entry := range m.contexts {
		if entry.lastUsed < oldestTime {
			oldestTime = entry.lastUsed
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(m.contexts, oldestKey)
		log.Debugf("Evicted context '%s' from context model", oldestKey)
	}
}
