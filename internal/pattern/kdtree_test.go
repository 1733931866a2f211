package pattern

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestQueryIdentityHasZeroDistance(t *testing.T) {
	points := [][]float64{{1, 2, 3}}
	tree := NewKDTree(points)

	distances, indices := tree.Query([]float64{1, 2, 3}, 1)
	if len(distances) != 1 {
		t.Fatalf("result count = %d, want 1", len(distances))
	}
	if distances[0] != 0 {
		t.Errorf("identity distance = %v, want 0", distances[0])
	}
	if indices[0] != 0 {
		t.Errorf("identity index = %d, want 0", indices[0])
	}
}

func TestQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n, dims, k = 200, 4, 5

	points := make([][]float64, n)
	for i := range points {
		p := make([]float64, dims)
		for d := range p {
			p[d] = rng.Float64() * 10
		}
		points[i] = p
	}
	tree := NewKDTree(points)

	for trial := 0; trial < 20; trial++ {
		target := make([]float64, dims)
		for d := range target {
			target[d] = rng.Float64() * 10
		}

		distances, _ := tree.Query(target, k)
		if len(distances) != k {
			t.Fatalf("result count = %d, want %d", len(distances), k)
		}

		brute := make([]float64, n)
		for i, p := range points {
			brute[i] = floats.Distance(target, p, 2)
		}
		sort.Float64s(brute)

		for i := 0; i < k; i++ {
			if math.Abs(distances[i]-brute[i]) > 1e-9 {
				t.Fatalf("trial %d neighbor %d: distance %v, brute force %v",
					trial, i, distances[i], brute[i])
			}
		}
	}
}

func TestQueryRejectsDimensionMismatch(t *testing.T) {
	tree := NewKDTree([][]float64{{1, 2}})
	if distances, _ := tree.Query([]float64{1, 2, 3}, 1); distances != nil {
		t.Errorf("mismatched query returned %v, want nil", distances)
	}
}

func TestEmptyTree(t *testing.T) {
	tree := NewKDTree(nil)
	if distances, _ := tree.Query([]float64{1}, 1); distances != nil {
		t.Errorf("empty tree returned %v, want nil", distances)
	}
}

func TestRecognizeExactPattern(t *testing.T) {
	r := NewRecognizer()
	situation := Situation{"enemy_near": true, "health_bucket": 3, "emotion": "FEAR"}
	r.Add(situation, "FLEE")

	response, distance, ok := r.Recognize(situation, 0.7)
	if !ok {
		t.Fatal("identical situation not recognized")
	}
	if distance != 0 {
		t.Errorf("identical situation distance = %v, want 0", distance)
	}
	if response != "FLEE" {
		t.Errorf("response = %v, want FLEE", response)
	}
}

func TestRecognizeRejectsDistantPattern(t *testing.T) {
	r := NewRecognizer()
	r.Add(Situation{"a": 0.0, "b": 0.0}, "X")

	if _, _, ok := r.Recognize(Situation{"a": 100.0, "b": 100.0}, 0.7); ok {
		t.Error("distant situation matched")
	}
}

func TestRecognizeRejectsShapeMismatch(t *testing.T) {
	r := NewRecognizer()
	r.Add(Situation{"a": 1.0, "b": 2.0}, "X")

	if _, _, ok := r.Recognize(Situation{"a": 1.0}, 0.0); ok {
		t.Error("situation with different attributes matched")
	}
}

func TestEncodeIsKeyOrderStable(t *testing.T) {
	a := Encode(Situation{"x": 1.0, "y": true, "z": "rage"})
	b := Encode(Situation{"z": "rage", "y": true, "x": 1.0})

	if len(a) != 3 {
		t.Fatalf("vector length = %d, want 3", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("encoding depends on declaration order: %v vs %v", a, b)
		}
	}
}

func TestEncodeStringsAreStable(t *testing.T) {
	if foldString("RAGE") != foldString("RAGE") {
		t.Error("string folding is not deterministic")
	}
	v := foldString("CONFIDENCE")
	if v < 0 || v >= 1 {
		t.Errorf("folded value %v outside [0,1)", v)
	}
}
