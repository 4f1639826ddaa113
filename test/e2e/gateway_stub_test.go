package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/AleutianAI/tere4ai/services/gateway/datatypes"
	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

// pollsUntilDone is how many status polls a stub job takes to finish.
// The CLI's plain watcher polls every 500ms, so a run completes in
// about a second.
const pollsUntilDone = 2

// stubGateway is a scripted gateway the CLI binary runs against. Every
// analysis accepts as job "job-e2e" and finishes with the same canned
// limited-risk report.
type stubGateway struct {
	*httptest.Server

	report *model.Report

	mu    sync.Mutex
	polls int
}

func (g *stubGateway) jobDone() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.polls >= pollsUntilDone
}

func newStubGateway(t *testing.T) *stubGateway {
	t.Helper()

	g := &stubGateway{report: limitedRiskReport()}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok", "service": "tere4ai-gateway", "version": "0.1.0",
		})
	})

	mux.HandleFunc("POST /v1/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req datatypes.AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if len(req.Description) < datatypes.MinDescriptionLen {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "description too short"})
			return
		}
		g.mu.Lock()
		g.polls = 0
		g.mu.Unlock()
		writeJSON(w, http.StatusAccepted, datatypes.AnalyzeAccepted{
			JobID:     "job-e2e",
			Status:    "queued",
			StatusURL: "/v1/jobs/job-e2e",
			ReportURL: "/v1/jobs/job-e2e/report",
		})
	})

	mux.HandleFunc("GET /v1/jobs/job-e2e", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.polls++
		done := g.polls >= pollsUntilDone
		g.mu.Unlock()

		status := datatypes.JobStatusResponse{
			JobID:    "job-e2e",
			Status:   "running",
			Phase:    "specifying",
			Progress: 70,
			Message:  "Generating requirements...",
		}
		if done {
			status.Status = "complete"
			status.Phase = "complete"
			status.Progress = 100
			status.Message = "Report ready"
		}
		writeJSON(w, http.StatusOK, status)
	})

	mux.HandleFunc("GET /v1/jobs/job-e2e/report", func(w http.ResponseWriter, r *http.Request) {
		if !g.jobDone() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "analysis not finished"})
			return
		}
		writeJSON(w, http.StatusOK, g.report)
	})

	mux.HandleFunc("GET /v1/reports", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"reports": []map[string]any{{
				"report_id":         g.report.ReportID,
				"generated_at":      g.report.GeneratedAt,
				"system_name":       g.report.SystemDescription.Name,
				"risk_level":        string(g.report.RiskClassification.Level),
				"requirement_count": len(g.report.Requirements),
			}},
			"count": 1,
		})
	})

	mux.HandleFunc("GET /v1/reports/{reportId}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("reportId") != g.report.ReportID {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
			return
		}
		writeJSON(w, http.StatusOK, g.report)
	})

	mux.HandleFunc("GET /v1/examples", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"examples": []datatypes.ExampleSystem{{
				Name:              "Support Chatbot",
				Description:       "A chatbot that answers customer billing questions and hands off to a human on request.",
				ExpectedRiskLevel: "limited",
			}},
		})
	})

	g.Server = httptest.NewServer(mux)
	t.Cleanup(g.Close)
	return g
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// limitedRiskReport is the canned analysis result the stub serves.
func limitedRiskReport() *model.Report {
	report := model.NewReport()
	report.SystemDescription = &model.SystemDescription{
		RawDescription:    "A chatbot that answers customer billing questions.",
		Name:              "Support Chatbot",
		Domain:            model.DomainConsumer,
		Purpose:           "Answer customer billing questions",
		AutonomyLevel:     model.AutonomyAdvisory,
		DeploymentContext: model.DeploymentOnlinePlatform,
	}
	report.RiskClassification = &model.RiskClassification{
		Level: model.RiskLimited,
		LegalBasis: model.CitationBundle{
			Primary:   model.Citation{Source: model.SourceEUAIAct, Article: "50"},
			Rationale: "Chatbots interacting with natural persons fall under Article 50",
		},
		ApplicableArticles: []string{"50"},
		Reasoning:          "Users must be told they are talking to an AI system.",
	}
	report.Requirements = []model.Requirement{
		{
			ID:        "REQ-001",
			Title:     "Disclose AI interaction to users",
			Statement: "The chatbot shall inform users that they are interacting with an AI system.",
			Category:  model.CategoryTransparencyLimited,
			Priority:  model.PriorityHigh,
			Type:      model.TypeMandatory,
			EUAIActCitations: []model.Citation{
				{Source: model.SourceEUAIAct, Article: "50"},
			},
			DerivedFromArticles:  []string{"50"},
			VerificationCriteria: []string{"Disclosure appears before the first exchange"},
		},
	}
	report.ProcessingPhases = []string{"eliciting", "analyzing", "specifying", "validating"}
	return report
}
