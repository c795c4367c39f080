// Package patient defines the raw patient record as received from the
// assessment API and the normalization of its untrusted fields. The API
// mixes numbers, numeric strings, nulls, and missing keys freely, so every
// vital sign field is typed as `any` and narrowed here; absence is the only
// failure signal, never an error.
package patient

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RawRecord is one patient row exactly as the API sent it. No field can be
// trusted: age and temperature arrive as numbers, numeric strings, null, or
// not at all, and blood_pressure is a free-form string. Fields the pipeline
// ignores (name, gender, visit_date, diagnosis, medications) are kept only
// so a decoded record round-trips for diagnostics.
type RawRecord struct {
	PatientID     any `json:"patient_id"`
	Name          any `json:"name,omitempty"`
	Gender        any `json:"gender,omitempty"`
	Age           any `json:"age,omitempty"`
	Temperature   any `json:"temperature,omitempty"`
	BloodPressure any `json:"blood_pressure,omitempty"`
	VisitDate     any `json:"visit_date,omitempty"`
	Diagnosis     any `json:"diagnosis,omitempty"`
	Medications   any `json:"medications,omitempty"`
}

// ID returns the patient identifier and whether the record has a usable one.
// Only a non-empty string counts; a numeric or missing patient_id makes the
// record ineligible for every alert list.
func (r RawRecord) ID() (string, bool) {
	s, ok := r.PatientID.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// BloodPressure is a successfully parsed "systolic/diastolic" reading.
type BloodPressure struct {
	Systolic  float64
	Diastolic float64
}

// Vitals holds the normalized view of one record. Each field carries its own
// presence flag; a record can have a valid temperature next to an unparseable
// blood pressure and both facts must survive into scoring.
type Vitals struct {
	BP     BloodPressure
	BPOK   bool
	Temp   float64
	TempOK bool
	Age    float64
	AgeOK  bool
}

// Normalize narrows every vital sign field of a raw record independently.
func Normalize(r RawRecord) Vitals {
	var v Vitals
	v.BP, v.BPOK = ParseBloodPressure(r.BloodPressure)
	v.Temp, v.TempOK = Number(r.Temperature)
	v.Age, v.AgeOK = Number(r.Age)
	return v
}

// Number coerces an untrusted JSON value into a finite float64. Numbers are
// accepted directly, strings are trimmed and parsed. NaN, infinities, null,
// missing values, and non-numeric strings all report absence.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, finite(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, finite(f)
	case int:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, finite(f)
	default:
		return 0, false
	}
}

// ParseBloodPressure accepts only a non-empty string with exactly one "/"
// where both sides normalize to finite numbers. Anything else — null,
// missing, multiple separators, an empty or non-numeric side — is absent.
func ParseBloodPressure(v any) (BloodPressure, bool) {
	s, ok := v.(string)
	if !ok {
		return BloodPressure{}, false
	}
	if strings.Count(s, "/") != 1 {
		return BloodPressure{}, false
	}
	parts := strings.SplitN(s, "/", 2)
	sys, ok := Number(parts[0])
	if !ok {
		return BloodPressure{}, false
	}
	dia, ok := Number(parts[1])
	if !ok {
		return BloodPressure{}, false
	}
	return BloodPressure{Systolic: sys, Diastolic: dia}, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
