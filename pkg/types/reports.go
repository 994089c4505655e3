package types

import (
	"sort"
	"time"
)

// ReportType is the severity of a diagnostic report.
type ReportType string

const (
	ReportTypeUnspecified ReportType = "UNSPECIFIED"
	ReportTypeSoftFail    ReportType = "SOFT_FAIL"

	// ReportTypeHardFail means the node needs operator attention before it can serve.
	ReportTypeHardFail ReportType = "HARD_FAIL"
)

// ParseReportType parses a report type name.
func ParseReportType(s string) (ReportType, error) {
	switch ReportType(s) {
	case ReportTypeUnspecified, ReportTypeSoftFail, ReportTypeHardFail:
		return ReportType(s), nil
	}
	return "", NewValidationErrorf("unknown report type '%s'", s)
}

// Report is a diagnostic entry attached to a node by an agent or operator.
type Report struct {
	ID          string                 `json:"id" yaml:"id"`
	Type        ReportType             `json:"type" yaml:"type"`
	CreatedAt   time.Time              `json:"createdAt" yaml:"createdAt"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

// Reports is the set of reports of a node, keyed by report id. Treat it as
// immutable; the builder methods return new maps.
type Reports map[string]Report

// HasHardFail returns true if any report has the HARD_FAIL severity.
func (r Reports) HasHardFail() bool {
	for _, report := range r {
		if report.Type == ReportTypeHardFail {
			return true
		}
	}
	return false
}

// With returns a copy with report set under its id.
func (r Reports) With(report Report) Reports {
	out := r.clone()
	out[report.ID] = report
	return out
}

// Without returns a copy without the report with the given id.
func (r Reports) Without(id string) Reports {
	out := r.clone()
	delete(out, id)
	return out
}

// IDs returns the report ids in sorted order.
func (r Reports) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r Reports) clone() Reports {
	out := make(Reports, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}
