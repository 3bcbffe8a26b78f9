package sim

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Reporter writes replay results in the formats the analysis scripts
// consume: a human-readable summary, a per-tag CSV and a JSON report.
type Reporter struct {
	results    *Results
	outputPath string
}

// NewReporter creates a reporter writing under outputPath.
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{results: results, outputPath: outputPath}
}

// GenerateReport writes all report formats.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateTagLog(); err != nil {
		return err
	}
	return r.generateJSONReport()
}

func (r *Reporter) sortedTags() []string {
	tags := make([]string, 0, len(r.results.PerTag))
	for tag := range r.results.PerTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// generateSummary writes the human-readable summary file.
func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, "simulation_summary.txt")
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "BRANCH PREDICTION RESULTS\n")
	fmt.Fprintf(file, "=========================\n\n")

	fmt.Fprintf(file, "Run: %s to %s (%s)\n",
		r.results.StartedAt.Format(time.RFC3339),
		r.results.FinishedAt.Format(time.RFC3339),
		r.results.FinishedAt.Sub(r.results.StartedAt))
	fmt.Fprintf(file, "Observations: %d (%d tagged)\n\n", r.results.Observations, r.results.Tagged)

	fmt.Fprintf(file, "PER-SITE ACCURACY\n")
	fmt.Fprintf(file, "-----------------\n")
	for _, tag := range r.sortedTags() {
		report := r.results.PerTag[tag]
		fmt.Fprintf(file, "%s: %d/%d correct, accuracy %.4f, moving %.4f\n",
			tag, report.Hits, report.Total, report.Accuracy, report.MovingAccuracy)
	}

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

// generateTagLog writes per-tag statistics as CSV.
func (r *Reporter) generateTagLog() error {
	csvPath := filepath.Join(r.outputPath, "site_accuracy.csv")
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create site log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Tag", "Hits", "Total", "Accuracy", "Moving Accuracy"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, tag := range r.sortedTags() {
		report := r.results.PerTag[tag]
		record := []string{
			tag,
			fmt.Sprintf("%d", report.Hits),
			fmt.Sprintf("%d", report.Total),
			fmt.Sprintf("%.6f", report.Accuracy),
			fmt.Sprintf("%.6f", report.MovingAccuracy),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	log.Info().Str("file", csvPath).Msg("Site accuracy log generated")
	return nil
}

// generateJSONReport writes the full results as JSON.
func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, "simulation_results.json")

	report := map[string]interface{}{
		"summary": map[string]interface{}{
			"started_at":   r.results.StartedAt,
			"finished_at":  r.results.FinishedAt,
			"observations": r.results.Observations,
			"tagged":       r.results.Tagged,
		},
		"sites":        r.results.PerTag,
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// PrintSummary prints run results to the console.
func (r *Reporter) PrintSummary() {
	fmt.Println("\n=== BRANCH PREDICTION RESULTS ===")
	fmt.Printf("Observations: %d (%d tagged)\n", r.results.Observations, r.results.Tagged)
	for _, tag := range r.sortedTags() {
		report := r.results.PerTag[tag]
		fmt.Printf("Branch: %s Accuracy %.4f Moving %.4f (%d/%d)\n",
			tag, report.Accuracy, report.MovingAccuracy, report.Hits, report.Total)
	}
	fmt.Println("=================================")
}
