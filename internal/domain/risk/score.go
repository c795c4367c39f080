// Package risk implements the clinical risk scoring rules. All functions are
// pure: they map normalized vitals to point values and flags, with absent
// fields contributing zero points. Scores and flags are computed per field
// independently, so a record with one malformed field still earns points for
// the fields that did parse.
package risk

import "github.com/riskscan/riskscan/internal/domain/patient"

// HighRiskThreshold is the minimum total score for high-risk membership.
const HighRiskThreshold = 4

// FeverThreshold is the minimum normalized temperature flagged as fever.
const FeverThreshold = 99.6

// Classification is the scoring outcome for one patient record, computed
// once per run and never mutated afterwards.
type Classification struct {
	BPScore   int
	TempScore int
	AgeScore  int
	Total     int
	Fever     bool
	// DataQuality is set when any of blood pressure, temperature, or age
	// failed to normalize. It does not suppress the scores of the fields
	// that did parse.
	DataQuality bool
}

// HighRisk reports whether the total score meets the high-risk threshold.
func (c Classification) HighRisk() bool {
	return c.Total >= HighRiskThreshold
}

// Classify scores one set of normalized vitals.
func Classify(v patient.Vitals) Classification {
	c := Classification{
		BPScore:     BloodPressureScore(v.BP, v.BPOK),
		TempScore:   TemperatureScore(v.Temp, v.TempOK),
		AgeScore:    AgeScore(v.Age, v.AgeOK),
		Fever:       v.TempOK && v.Temp >= FeverThreshold,
		DataQuality: !v.BPOK || !v.TempOK || !v.AgeOK,
	}
	c.Total = c.BPScore + c.TempScore + c.AgeScore
	return c
}

// BloodPressureScore is the higher of the systolic and diastolic stage.
// An unparseable reading scores 0.
func BloodPressureScore(bp patient.BloodPressure, ok bool) int {
	if !ok {
		return 0
	}
	sys := systolicStage(bp.Systolic)
	dia := diastolicStage(bp.Diastolic)
	if sys > dia {
		return sys
	}
	return dia
}

func systolicStage(s float64) int {
	switch {
	case s < 120:
		return 1
	case s < 130:
		return 2
	case s < 140:
		return 3
	default:
		return 4
	}
}

// diastolicStage has no 2-point band. The source rubric skips straight from
// 1 to 3 and that asymmetry is load-bearing; do not "fix" it.
func diastolicStage(d float64) int {
	switch {
	case d < 80:
		return 1
	case d < 90:
		return 3
	default:
		return 4
	}
}

// TemperatureScore buckets a normalized temperature: normal up to 99.5,
// low-grade through 100.9, high fever at 101.0 and above. Absent scores 0.
func TemperatureScore(t float64, ok bool) int {
	switch {
	case !ok:
		return 0
	case t <= 99.5:
		return 0
	case t <= 100.9:
		return 1
	default:
		return 2
	}
}

// AgeScore gives 2 points above 65 and 1 point otherwise. Age is not range
// validated beyond parseability, so zero and negative ages still score 1.
func AgeScore(age float64, ok bool) int {
	switch {
	case !ok:
		return 0
	case age > 65:
		return 2
	default:
		return 1
	}
}
