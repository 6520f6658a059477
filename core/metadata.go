package core

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunMetadata is the side-car record written next to each generated
// workbook, whatever the outcome of the run.
type RunMetadata struct {
	RunID           string         `json:"run_id"`
	Status          string         `json:"status"`
	Timestamp       string         `json:"timestamp"`
	DurationSeconds float64        `json:"duration_seconds"`
	OutputFile      string         `json:"output_file"`
	SheetsProcessed []string       `json:"sheets_processed"`
	SheetsFailed    []string       `json:"sheets_failed"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	InputMetadata   map[string]any `json:"input_metadata,omitempty"`
	GenerationArgs  map[string]any `json:"generation_args,omitempty"`
}

// Monitor tracks per-sheet outcomes for one generation run and guarantees
// a metadata file on finish, success or failure.
type Monitor struct {
	outputPath    string
	args          map[string]any
	inputMetadata map[string]any
	runID         string
	start         time.Time

	processed []string
	failed    []string
}

// NewMonitor starts tracking a generation run targeting outputPath.
func NewMonitor(outputPath string, args map[string]any) *Monitor {
	return &Monitor{
		outputPath: outputPath,
		args:       args,
		runID:      uuid.NewString(),
		start:      time.Now(),
	}
}

// SetInputMetadata records the payload's own metadata block for the
// side-car file.
func (m *Monitor) SetInputMetadata(meta map[string]any) {
	m.inputMetadata = meta
}

// SheetProcessed records a successfully processed sheet.
func (m *Monitor) SheetProcessed(name string) {
	m.processed = append(m.processed, name)
	slog.Info("Successfully processed sheet", "sheet", name)
}

// SheetFailed records a failed sheet; processing continues with the next.
func (m *Monitor) SheetFailed(name string, err error) {
	m.failed = append(m.failed, name)
	slog.Error("Failed to process sheet", "sheet", name, "error", err)
}

// Failed reports whether any sheet failed so far.
func (m *Monitor) Failed() bool {
	return len(m.failed) > 0
}

// Finish determines the final status and writes the metadata side-car.
// A fatal error marks the whole run fatal; sheet failures downgrade it to
// partial_success or error depending on whether anything succeeded.
func (m *Monitor) Finish(fatal error) {
	status := "success"
	errMsg := ""
	switch {
	case fatal != nil:
		status = "fatal"
		errMsg = fatal.Error()
	case len(m.failed) > 0 && len(m.processed) > 0:
		status = "partial_success"
		errMsg = fmt.Sprintf("failed sheets: %s", strings.Join(m.failed, ", "))
	case len(m.failed) > 0:
		status = "error"
		errMsg = fmt.Sprintf("failed sheets: %s", strings.Join(m.failed, ", "))
	}

	meta := RunMetadata{
		RunID:           m.runID,
		Status:          status,
		Timestamp:       time.Now().Format(time.RFC3339),
		DurationSeconds: time.Since(m.start).Seconds(),
		OutputFile:      filepath.Base(m.outputPath),
		SheetsProcessed: m.processed,
		SheetsFailed:    m.failed,
		ErrorMessage:    errMsg,
		InputMetadata:   m.inputMetadata,
		GenerationArgs:  m.args,
	}

	if err := writeMetadata(m.outputPath, &meta); err != nil {
		slog.Error("Failed to write generation metadata", "error", err)
	}
}

// MetadataPath returns the side-car path for a given output file.
func MetadataPath(outputPath string) string {
	stem := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	return filepath.Join(filepath.Dir(outputPath), stem+"_metadata.json")
}

func writeMetadata(outputPath string, meta *RunMetadata) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory for metadata: %w", err)
	}
	raw, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(MetadataPath(outputPath), raw, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}
