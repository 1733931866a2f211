package pattern

import (
	"hash/fnv"
	"sort"
)

// Situation is an arbitrary attribute map describing a combat moment.
// Booleans, numbers, and strings are encodable; other value types encode
// to 0.
type Situation map[string]any

// Recognizer stores (vector, response) pairs and answers fuzzy
// nearest-neighbor matches. It complements the exact-match association store
// in the memory subsystem; exact matches take precedence, this is the
// fallback.
type Recognizer struct {
	patterns  []Situation
	vectors   [][]float64
	responses []any
	tree      *KDTree
}

// NewRecognizer creates an empty recognizer.
func NewRecognizer() *Recognizer { return &Recognizer{} }

// Add stores a pattern and its response and rebuilds the index.
func (r *Recognizer) Add(p Situation, response any) {
	r.patterns = append(r.patterns, p)
	r.vectors = append(r.vectors, Encode(p))
	r.responses = append(r.responses, response)
	r.tree = NewKDTree(r.vectors)
}

// Recognize returns the nearest stored response when its distance falls
// below (1-threshold) × vector length; otherwise ok is false.
func (r *Recognizer) Recognize(situation Situation, threshold float64) (response any, distance float64, ok bool) {
	if r.tree == nil || r.tree.Len() == 0 {
		return nil, 0, false
	}

	vector := Encode(situation)
	if len(vector) != r.tree.Dims() {
		return nil, 0, false
	}

	distances, indices := r.tree.Query(vector, 1)
	if len(distances) == 0 {
		return nil, 0, false
	}
	if distances[0] < (1-threshold)*float64(len(vector)) {
		return r.responses[indices[0]], distances[0], true
	}
	return nil, distances[0], false
}

// Len returns the number of stored patterns.
func (r *Recognizer) Len() int { return len(r.patterns) }

// Clear drops every stored pattern.
func (r *Recognizer) Clear() {
	r.patterns = nil
	r.vectors = nil
	r.responses = nil
	r.tree = nil
}

// Encode converts a situation into a numeric vector with one dimension per
// sorted attribute key: booleans to {0,1}, numbers as-is, strings to a
// stable hash folded into [0,1).
func Encode(p Situation) []float64 {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vector := make([]float64, 0, len(keys))
	for _, k := range keys {
		vector = append(vector, encodeValue(p[k]))
	}
	return vector
}

func encodeValue(v any) float64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case string:
		return foldString(x)
	default:
		return 0
	}
}

// foldString hashes a string into [0,1) deterministically across runs.
func foldString(s string) float64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return float64(h.Sum64()%1000) / 1000.0
}
