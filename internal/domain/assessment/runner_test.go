package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/riskscan/riskscan/internal/platform/transport"
)

func testConfig(baseURL string) Config {
	pol := transport.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}
	return Config{
		BaseURL:      baseURL,
		PageSize:     20,
		PageDelay:    0,
		FetchPolicy:  pol,
		SubmitPolicy: pol,
	}
}

// TestRunner_EndToEnd drives a full run against a fake API: two data pages
// (with a duplicate patient and assorted malformed fields), an empty third
// page that still claims hasNext, and a 429 on the first fetch attempt.
func TestRunner_EndToEnd(t *testing.T) {
	var fetchCalls int32
	var submitted SubmissionPayload

	mux := http.NewServeMux()
	mux.HandleFunc("/patients", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&fetchCalls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		switch r.URL.Query().Get("page") {
		case "1":
			// HI01: 150/95 + 101.5 + 70y → 4+2+2=8, fever, high risk.
			// DQ01: bad temperature, otherwise mild → quality issue only.
			// (no id): excluded everywhere.
			fmt.Fprint(w, `{"data":[
				{"patient_id":"HI01","blood_pressure":"150/95","temperature":101.5,"age":70},
				{"patient_id":"DQ01","blood_pressure":"110/70","temperature":"N/A","age":30},
				{"name":"no identifier","blood_pressure":"180/120","temperature":103,"age":80}
			],"pagination":{"hasNext":true}}`)
		case "2":
			// HI01 again (duplicate across pages) and a low-risk patient.
			fmt.Fprint(w, `{"data":[
				{"patient_id":"HI01","blood_pressure":"150/95","temperature":101.5,"age":70},
				{"patient_id":"OK01","blood_pressure":"110/70","temperature":98.6,"age":30}
			],"pagination":{"hasNext":true}}`)
		default:
			fmt.Fprint(w, `{"data":[],"pagination":{"hasNext":true}}`)
		}
	})
	mux.HandleFunc("/submit-assessment", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
			t.Errorf("decode submission: %v", err)
		}
		fmt.Fprint(w, `{"status":"accepted"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	runner := NewRunner(transport.New("test-key"), testConfig(srv.URL), zerolog.Nop())
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.Fetched != 4 {
		t.Errorf("fetched = %d, want 4", summary.Fetched)
	}
	if summary.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", summary.Skipped)
	}
	if summary.Pages != 2 {
		t.Errorf("pages = %d, want 2", summary.Pages)
	}
	if summary.RunID == "" {
		t.Error("expected a run id")
	}
	if string(summary.Response) != `{"status":"accepted"}` {
		t.Errorf("response = %s", summary.Response)
	}

	if !reflect.DeepEqual(submitted.HighRiskPatients, []string{"HI01"}) {
		t.Errorf("high risk = %v, want [HI01]", submitted.HighRiskPatients)
	}
	if !reflect.DeepEqual(submitted.FeverPatients, []string{"HI01"}) {
		t.Errorf("fever = %v, want [HI01]", submitted.FeverPatients)
	}
	if !reflect.DeepEqual(submitted.DataQualityIssues, []string{"DQ01"}) {
		t.Errorf("data quality = %v, want [DQ01]", submitted.DataQualityIssues)
	}
}

func TestRunner_FetchFailureAbortsBeforeSubmission(t *testing.T) {
	var submitCalled int32
	mux := http.NewServeMux()
	mux.HandleFunc("/patients", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})
	mux.HandleFunc("/submit-assessment", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&submitCalled, 1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	runner := NewRunner(transport.New("wrong"), testConfig(srv.URL), zerolog.Nop())
	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected run to fail")
	}
	if atomic.LoadInt32(&submitCalled) != 0 {
		t.Error("no submission may happen after a fetch failure")
	}
}

func TestRunner_SubmitRetryExhaustionPropagates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/patients", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `{"data":[{"patient_id":"P1","blood_pressure":"120/80","temperature":98.6,"age":44}]}`)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	})
	mux.HandleFunc("/submit-assessment", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	runner := NewRunner(transport.New("test-key"), testConfig(srv.URL), zerolog.Nop())
	_, err := runner.Run(context.Background())

	var exhausted *transport.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
}
