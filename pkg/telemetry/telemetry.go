// Package telemetry implements the Telemetry Sink and the UI & Telemetry
// Projection (spec.md §4.8): an append-only record of phase transitions,
// agent activity, and outcomes, plus a read-only projection of final
// pipeline state into a file_manifest and dashboard_metrics for
// downstream UIs. Neither this package nor anything it produces can
// affect pipeline outcome.
//
// Grounded on the teacher's pkg/events typed-payload-and-publish pattern
// (pkg/events/publisher.go, payloads.go), stripped of its postgres
// NOTIFY/LISTEN and WebSocket transport (pkg/events' audience is a live
// multi-pod UI; ours is an in-process audit trail and a terminal
// projection, so the transport-heavy half of that package has no
// SPEC_FULL.md component to serve — see DESIGN.md). Counters use
// prometheus/client_golang, the teacher's metrics dependency.
package telemetry

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
)

// EventType discriminates the kind of telemetry record appended to a Sink.
type EventType string

const (
	EventPhaseStarted    EventType = "phase.started"
	EventPhaseCompleted  EventType = "phase.completed"
	EventAgentSelected   EventType = "agent.selected"
	EventAgentUtterance  EventType = "agent.utterance"
	EventGovernorTruncated EventType = "governor.truncated"
	EventHallucinationWarning EventType = "verdict.hallucination_warning"
	EventFailureRecorded EventType = "failure.recorded"
)

// Event is one append-only telemetry record.
type Event struct {
	Type      EventType
	ProcessID string
	Phase     phase.Name
	Role      phase.Role
	Message   string
	Timestamp time.Time
}

// Sink receives telemetry records. Out-of-scope internals (the original
// system's log-shipping destinations) are not represented; this is the
// single append boundary the orchestration packages write through.
type Sink interface {
	Record(e Event)
}

// MemorySink is an in-process append-only sink, sufficient for a single
// pipeline run's lifetime and for driving the UI projection below.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink builds an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends e. Safe for concurrent use (pkg/workspace's prefetch
// goroutines and the phase runner's main loop may both record).
func (s *MemorySink) Record(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a snapshot of all recorded events, in append order.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Metrics are the Prometheus counters the Phase Runner and Chat History
// Governor increment as they run (SPEC_FULL.md Supplemented Features).
type Metrics struct {
	PhaseRounds          *prometheus.CounterVec
	PhaseTerminations    *prometheus.CounterVec
	GovernorTruncations  prometheus.Counter
	HallucinationWarnings prometheus.Counter
}

// NewMetrics registers the pipeline's counters against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PhaseRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aks_migrator_phase_rounds_total",
			Help: "Group chat rounds executed, by phase.",
		}, []string{"phase"}),
		PhaseTerminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aks_migrator_phase_terminations_total",
			Help: "Phase terminations, by phase and termination_type.",
		}, []string{"phase", "termination_type"}),
		GovernorTruncations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aks_migrator_governor_truncations_total",
			Help: "Chat history truncations performed by the governor.",
		}),
		HallucinationWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aks_migrator_hallucination_warnings_total",
			Help: "Termination verdicts flagged by the hallucination scan.",
		}),
	}
	reg.MustRegister(m.PhaseRounds, m.PhaseTerminations, m.GovernorTruncations, m.HallucinationWarnings)
	return m
}

// FileEntry is one row of the file_manifest projection.
type FileEntry struct {
	Name             string
	Kind             string // source | converted | failed | report
	RemediationHint  string
	DownloadRef       string
}

// FileManifest is the source/converted/failed/report file listing
// produced at pipeline completion (spec.md §4.8).
type FileManifest struct {
	SourceFiles    []FileEntry
	ConvertedFiles []FileEntry
	FailedFiles    []FileEntry
	ReportFiles    []FileEntry
}

// DashboardMetrics is the completion-percentage/status-summary projection
// produced at pipeline completion (spec.md §4.8).
type DashboardMetrics struct {
	CompletionPercentage float64
	FilesDiscovered      int
	FilesConverted       int
	FilesFailed          int
	StatusSummary        string
}

// Project builds the file_manifest and dashboard_metrics from the final
// per-phase state. It only reads PhaseStates and the analysis/yaml
// payloads already attached to their verdicts; it performs no I/O and
// cannot alter pipeline outcome.
func Project(result *migration.PipelineResult) (FileManifest, DashboardMetrics) {
	var manifest FileManifest
	var discovered, converted, failed int

	if analysis, ok := result.FinalState["analysis"]; ok && analysis.FinalVerdict != nil {
		if payload, ok := analysis.FinalVerdict.TerminationOutput.(*migration.AnalysisPayload); ok {
			discovered = len(payload.FilesDiscovered)
			for _, f := range payload.FilesDiscovered {
				manifest.SourceFiles = append(manifest.SourceFiles, FileEntry{Name: f.Filename, Kind: "source"})
			}
			if payload.AnalysisFile != "" {
				manifest.ReportFiles = append(manifest.ReportFiles, FileEntry{Name: payload.AnalysisFile, Kind: "report", DownloadRef: payload.AnalysisFile})
			}
		}
	}

	if yamlState, ok := result.FinalState["yaml"]; ok && yamlState.FinalVerdict != nil {
		if payload, ok := yamlState.FinalVerdict.TerminationOutput.(*migration.YAMLPayload); ok {
			for _, f := range payload.ConvertedFiles {
				entry := FileEntry{Name: f.ConvertedFile, Kind: "converted", DownloadRef: f.ConvertedFile}
				if f.ConversionStatus == "failed" {
					entry.Kind = "failed"
					entry.RemediationHint = strings.Join(f.Concerns, "; ")
					manifest.FailedFiles = append(manifest.FailedFiles, entry)
					failed++
					continue
				}
				manifest.ConvertedFiles = append(manifest.ConvertedFiles, entry)
				converted++
			}
			if payload.ConversionReportFile != "" {
				manifest.ReportFiles = append(manifest.ReportFiles, FileEntry{Name: payload.ConversionReportFile, Kind: "report", DownloadRef: payload.ConversionReportFile})
			}
		}
	}

	if doc, ok := result.FinalState["documentation"]; ok && doc.FinalVerdict != nil {
		if payload, ok := doc.FinalVerdict.TerminationOutput.(*migration.DocumentationPayload); ok {
			for _, f := range payload.GeneratedFiles.Documentation {
				manifest.ReportFiles = append(manifest.ReportFiles, FileEntry{Name: f, Kind: "report", DownloadRef: f})
			}
		}
	}

	percent := 0.0
	if discovered > 0 {
		percent = float64(converted) / float64(discovered) * 100
	} else if result.Status == migration.StatusCompleted {
		percent = 100
	}

	metrics := DashboardMetrics{
		CompletionPercentage: percent,
		FilesDiscovered:      discovered,
		FilesConverted:       converted,
		FilesFailed:          failed,
		StatusSummary:        string(result.Status),
	}
	return manifest, metrics
}
