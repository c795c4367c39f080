package assessment

import (
	"sort"

	"github.com/riskscan/riskscan/internal/domain/risk"
)

// AlertSets accumulates the three alert lists with set semantics: a patient
// seen on two pages lands in each list at most once. The sets live only for
// the duration of one run and are finalized into sorted lists just before
// submission.
type AlertSets struct {
	highRisk    map[string]struct{}
	fever       map[string]struct{}
	dataQuality map[string]struct{}
}

// NewAlertSets returns empty alert sets.
func NewAlertSets() *AlertSets {
	return &AlertSets{
		highRisk:    make(map[string]struct{}),
		fever:       make(map[string]struct{}),
		dataQuality: make(map[string]struct{}),
	}
}

// Record files one classified patient into whichever lists apply. Callers
// must only pass ids that came from a non-empty patient_id.
func (a *AlertSets) Record(id string, c risk.Classification) {
	if c.HighRisk() {
		a.highRisk[id] = struct{}{}
	}
	if c.Fever {
		a.fever[id] = struct{}{}
	}
	if c.DataQuality {
		a.dataQuality[id] = struct{}{}
	}
}

// Sizes reports the current membership counts.
func (a *AlertSets) Sizes() (highRisk, fever, dataQuality int) {
	return len(a.highRisk), len(a.fever), len(a.dataQuality)
}

// SubmissionPayload is the body POSTed to the submit endpoint. Every list is
// deduplicated and sorted ascending.
type SubmissionPayload struct {
	HighRiskPatients  []string `json:"high_risk_patients"`
	FeverPatients     []string `json:"fever_patients"`
	DataQualityIssues []string `json:"data_quality_issues"`
}

// Payload finalizes the sets into the submission body.
func (a *AlertSets) Payload() SubmissionPayload {
	return SubmissionPayload{
		HighRiskPatients:  sortedIDs(a.highRisk),
		FeverPatients:     sortedIDs(a.fever),
		DataQualityIssues: sortedIDs(a.dataQuality),
	}
}

// sortedIDs always returns a non-nil slice so empty lists marshal as [].
func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
