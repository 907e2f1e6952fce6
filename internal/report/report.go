// internal/report/report.go

// Package report renders a sweep's results as an XLSX workbook with a
// Summary sheet and a per-run Runs sheet.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"trts-core/engine"
	"trts/internal/runner"
	"trts/internal/sweep"
)

var runsHeader = []string{
	"Name", "ID", "Upsilon Seed", "Beta Seed", "Koppa Seed",
	"Koppa Mode", "Transform", "Propagation", "Trigger Map", "Oracle",
	"Steps", "Final Upsilon", "Final Beta", "Final Koppa",
	"Final Ratio", "Target", "Final Error",
	"Emissions", "Converged", "Duration (ms)", "Error",
}

var propagationOrder = []engine.PropagationMode{
	engine.PropQuietAdditive,
	engine.PropAdditive,
	engine.PropMultiplicative,
	engine.PropRotational,
}

// Write renders results into an XLSX workbook at path.
func Write(path string, results []runner.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	w := &cellWriter{f: f}
	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return fmt.Errorf("report: summary sheet: %w", err)
	}
	if _, err := f.NewSheet("Runs"); err != nil {
		return fmt.Errorf("report: runs sheet: %w", err)
	}

	writeSummary(w, results)
	writeRuns(w, results)
	if w.err != nil {
		return fmt.Errorf("report: fill workbook: %w", w.err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

func writeSummary(w *cellWriter, results []runner.Result) {
	converged, emissions, steps := 0, 0, 0
	tally := make(map[engine.PropagationMode]int)
	for _, r := range results {
		if r.Summary.Converged {
			converged++
		}
		emissions += r.Summary.EmissionCount
		steps += r.Summary.Steps
		tally[r.Spec.Propagation]++
	}

	const sheet = "Summary"
	w.set(sheet, 1, 1, "Metric")
	w.set(sheet, 2, 1, "Value")
	w.set(sheet, 1, 2, "Generated")
	w.set(sheet, 2, 2, time.Now().UTC().Format(time.RFC3339))
	w.set(sheet, 1, 3, "Runs")
	w.set(sheet, 2, 3, len(results))
	w.set(sheet, 1, 4, "Failed")
	w.set(sheet, 2, 4, sweep.Failed(results))
	w.set(sheet, 1, 5, "Converged")
	w.set(sheet, 2, 5, converged)
	w.set(sheet, 1, 6, "Total emissions")
	w.set(sheet, 2, 6, emissions)
	w.set(sheet, 1, 7, "Total steps")
	w.set(sheet, 2, 7, steps)

	w.set(sheet, 1, 9, "Propagation")
	w.set(sheet, 2, 9, "Runs")
	for i, mode := range propagationOrder {
		w.set(sheet, 1, 10+i, mode.String())
		w.set(sheet, 2, 10+i, tally[mode])
	}
}

func writeRuns(w *cellWriter, results []runner.Result) {
	const sheet = "Runs"
	for col, h := range runsHeader {
		w.set(sheet, col+1, 1, h)
	}
	for i, r := range results {
		row := i + 2
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		koppaSeed := ""
		if r.Spec.Koppa.Valid() {
			koppaSeed = r.Spec.Koppa.String()
		}
		cells := []any{
			r.Name, r.ID,
			r.Spec.Upsilon.String(), r.Spec.Beta.String(), koppaSeed,
			r.Spec.KoppaMode.String(), r.Spec.Transform.String(),
			r.Spec.Propagation.String(), r.Spec.TriggerMap.String(),
			r.Spec.OracleName, r.Spec.Steps,
			r.Final.Upsilon.String(), r.Final.Beta.String(), r.Final.Koppa.String(),
			num(r.Summary.FinalRatio), r.Spec.Target, num(r.Summary.FinalError),
			r.Summary.EmissionCount, r.Summary.Converged,
			r.Duration.Milliseconds(), errText,
		}
		for col, v := range cells {
			w.set(sheet, col+1, row, v)
		}
	}
}

// num keeps numeric cells numeric; XLSX number cells cannot hold non-finite
// values, so those degrade to text.
func num(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprint(v)
	}
	return v
}

// cellWriter sets cells by coordinate and holds the first error.
type cellWriter struct {
	f   *excelize.File
	err error
}

func (w *cellWriter) set(sheet string, col, row int, v any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellValue(sheet, cell, v)
}
