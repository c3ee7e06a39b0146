// Package artifact writes analyses to disk for downstream visualization.
package artifact

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/wind-weibull-service/internal/models"
	"github.com/kjstillabower/wind-weibull-service/internal/observability"
)

// Writer lays artifacts out as
//
//	{histogramsDir}/{city}_{variable}.json
//	{outputDir}/{city}_{variable}/density.csv
//	{outputDir}/{city}_{variable}/histogram.csv
type Writer struct {
	histogramsDir string
	outputDir     string
	logger        *zap.Logger
}

// NewWriter returns a Writer rooted at the given directories. They are created on first write.
func NewWriter(histogramsDir, outputDir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{histogramsDir: histogramsDir, outputDir: outputDir, logger: logger}
}

// Name returns the file-system stem for an analysis: "{city}_{variable}" with
// path separators replaced so a city name can never escape the output tree.
func Name(city string, variable models.Variable) string {
	r := strings.NewReplacer("/", "-", "\\", "-", "..", "-")
	return r.Replace(city) + "_" + r.Replace(string(variable))
}

// Write emits the JSON summary and, when the analysis is fitted, the density CSV.
// The histogram CSV is always written.
func (w *Writer) Write(a models.Analysis) error {
	name := Name(a.City, a.Variable)

	if err := os.MkdirAll(w.histogramsDir, 0o755); err != nil {
		return fmt.Errorf("create histograms dir: %w", err)
	}
	raw, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	jsonPath := filepath.Join(w.histogramsDir, name+".json")
	if err := os.WriteFile(jsonPath, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", jsonPath, err)
	}
	observability.ArtifactsWrittenTotal.WithLabelValues("json").Inc()

	dir := filepath.Join(w.outputDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	histRows := [][]string{{"lower", "upper", "count"}}
	for _, b := range a.Histogram.Bins {
		histRows = append(histRows, []string{formatFloat(b.Lower), formatFloat(b.Upper), strconv.Itoa(b.Count)})
	}
	if err := writeCSV(filepath.Join(dir, "histogram.csv"), histRows); err != nil {
		return err
	}
	observability.ArtifactsWrittenTotal.WithLabelValues("histogram_csv").Inc()

	if a.Density != nil {
		rows := make([][]string, 0, a.Density.Len()+1)
		rows = append(rows, []string{"x", "y"})
		for i := range a.Density.X {
			rows = append(rows, []string{formatFloat(a.Density.X[i]), formatFloat(a.Density.Y[i])})
		}
		if err := writeCSV(filepath.Join(dir, "density.csv"), rows); err != nil {
			return err
		}
		observability.ArtifactsWrittenTotal.WithLabelValues("density_csv").Inc()
	}

	w.logger.Debug("artifacts written",
		zap.String("city", a.City),
		zap.String("variable", string(a.Variable)),
		zap.String("json", jsonPath),
		zap.Bool("fitted", a.Fitted()))
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// formatFloat writes the shortest round-trip representation; +Inf stays "+Inf".
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
