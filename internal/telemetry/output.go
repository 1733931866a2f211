// Package telemetry writes run results to CSV files for offline analysis:
// the combat outcome log, final strategy weights, and per-entity learning
// progress.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/talgya/battlemind/internal/ai"
	"github.com/talgya/battlemind/internal/tactics"
)

// LearningRow is one entity's learning progress at the end of a run.
type LearningRow struct {
	EntityName string  `csv:"entity_name"`
	Epsilon    float64 `csv:"epsilon"`
	States     int     `csv:"states"`
	Threat     float64 `csv:"last_threat"`
	Aggression float64 `csv:"aggression"`
	Caution    float64 `csv:"caution"`
}

// WeightRow is one strategy's final adaptive weight.
type WeightRow struct {
	Strategy string  `csv:"strategy"`
	Weight   float64 `csv:"weight"`
}

// Writer writes telemetry files into one output directory.
type Writer struct {
	dir string
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WriteOutcomes writes the combat outcome log to outcomes.csv.
func (w *Writer) WriteOutcomes(outcomes []tactics.Outcome) error {
	return w.writeCSV("outcomes.csv", &outcomes)
}

// WriteWeights writes the final strategy weights to weights.csv.
func (w *Writer) WriteWeights(weights map[tactics.Strategy]float64) error {
	rows := make([]WeightRow, 0, len(weights))
	for s, weight := range weights {
		rows = append(rows, WeightRow{Strategy: string(s), Weight: weight})
	}
	return w.writeCSV("weights.csv", &rows)
}

// WriteLearning writes per-entity learning progress to learning.csv.
func (w *Writer) WriteLearning(controllers []*ai.Controller) error {
	rows := make([]LearningRow, 0, len(controllers))
	for _, c := range controllers {
		rows = append(rows, LearningRow{
			EntityName: c.Entity().Name(),
			Epsilon:    c.Learner().Epsilon(),
			States:     c.Learner().States(),
			Threat:     c.LastThreat(),
			Aggression: c.Profile.Aggression,
			Caution:    c.Profile.Caution,
		})
	}
	return w.writeCSV("learning.csv", &rows)
}

func (w *Writer) writeCSV(name string, rows any) error {
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
