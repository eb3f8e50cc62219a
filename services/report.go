package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"catalog-linker/models"
	"catalog-linker/utils"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// ReportService collects and renders the counters of a run.
type ReportService struct {
	logger *utils.Logger
	now    func() time.Time
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger, now: time.Now}
}

// Start opens a report for a new run.
func (s *ReportService) Start() *models.RunReport {
	r := &models.RunReport{RunID: uuid.NewString(), StartedAt: s.now().UTC()}
	s.logger.Info("[report] run %s started", r.RunID)
	return r
}

// AddSource records one source's extraction counters.
func (s *ReportService) AddSource(r *models.RunReport, t *models.SourceTable) {
	r.Sources = append(r.Sources, models.SourceSummary{Source: t.Source, Stats: t.Stats})
}

// Finish stamps the report with the merge counters and end time.
func (s *ReportService) Finish(r *models.RunReport, merge models.MergeStats) {
	r.Merge = merge
	r.FinishedAt = s.now().UTC()
	s.logger.Info("[report] run %s finished in %s", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

// Print renders the report to w.
func (s *ReportService) Print(w io.Writer, r *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", titleStyle.Render(sep))
	fmt.Fprintf(w, "%s\n", titleStyle.Render("  CATALOG LINKAGE RUN "+r.RunID))
	fmt.Fprintf(w, "%s\n\n", titleStyle.Render(sep))

	for _, src := range r.Sources {
		st := src.Stats
		fmt.Fprintf(w, "%s\n", sectionStyle.Render("  Source: "+src.Source))
		fmt.Fprintf(w, "  %s\n", thin)
		line(w, "Batch files", st.BatchFiles)
		line(w, "Raw rows", st.RawRows)
		line(w, "Duplicate natural keys", st.NaturalKeyDups)
		if st.Unscraped > 0 || st.DetailOnly > 0 {
			line(w, "Unscraped index entries", st.Unscraped)
			line(w, "Detail rows w/o index", st.DetailOnly)
		}
		line(w, "Rejected URLs", st.RejectedURLs)
		line(w, "Duplicate canonical URLs", st.CanonicalURLDups)
		line(w, "Kept listings", st.Kept)
		fmt.Fprintln(w)
	}

	m := r.Merge
	fmt.Fprintf(w, "%s\n", sectionStyle.Render("  Unified index"))
	fmt.Fprintf(w, "  %s\n", thin)
	line(w, "In both sources", m.Both)
	line(w, "Only in source A", m.OnlyA)
	line(w, "Only in source B", m.OnlyB)
	line(w, "Dropped, no description", m.EmptyDescription)
	if m.Collisions > 0 {
		fmt.Fprintf(w, "  %-26s: %s\n", "URL collisions", warnStyle.Render(humanize.Comma(int64(m.Collisions))))
	} else {
		line(w, "URL collisions", 0)
	}
	line(w, "Records", m.Output)
	if m.Output == 0 {
		fmt.Fprintf(w, "  %s\n", warnStyle.Render("No records survived linkage"))
	}

	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "\n  Took %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "\n%s\n\n", titleStyle.Render(sep))
}

func line(w io.Writer, label string, n int) {
	fmt.Fprintf(w, "  %-26s: %s\n", label, valueStyle.Render(humanize.Comma(int64(n))))
}
