// Package api is the thin net/http façade over the engine: every handler
// decodes a request, calls the engine or signal service, and encodes the
// result. No business logic lives here — that's entirely in the workflows
// and activities packages.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/domainkit/platform/domain"
	"github.com/domainkit/platform/engine"
	"github.com/domainkit/platform/signal"
	"github.com/domainkit/platform/signal/mongostore/clients/mongo"
	"github.com/domainkit/platform/visibility"
	"github.com/domainkit/platform/workflows/bootstrap"
	"github.com/domainkit/platform/workflows/contribution"
)

// Server wires the engine and signal service into an http.Handler.
type Server struct {
	eng     engine.Engine
	signals *signal.Service
	mux     *http.ServeMux
}

// NewServer builds the façade's routes.
func NewServer(eng engine.Engine, signals *signal.Service) *Server {
	s := &Server{eng: eng, signals: signals, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.mux.HandleFunc("POST /domains", s.createDomain)
	s.mux.HandleFunc("GET /domains/{workflow_id}/status", s.domainStatus)
	s.mux.HandleFunc("POST /domains/{workflow_id}/owner-feedback", s.submitOwnerFeedback)
	s.mux.HandleFunc("GET /domains/owner/inbox", s.ownerInbox)

	s.mux.HandleFunc("POST /documents", s.createDocument)
	s.mux.HandleFunc("GET /documents/{workflow_id}/status", s.documentStatus)
	s.mux.HandleFunc("POST /workflows/{workflow_id}/controller-decision", s.controllerDecision)

	s.mux.HandleFunc("GET /inbox/signals", s.listSignals)
	s.mux.HandleFunc("GET /inbox/signals/unread-count", s.unreadCount)
	s.mux.HandleFunc("POST /inbox/signals/{signal_id}/read", s.markRead)
	s.mux.HandleFunc("POST /inbox/signals/mark-all-read", s.markAllRead)
}

type createDomainRequest struct {
	OwnerID         string                 `json:"owner_id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Slug            string                 `json:"slug"`
	InitialTopics   []string               `json:"initial_topics"`
	TargetAudience  []string               `json:"target_audience"`
	QualityCriteria domain.QualityCriteria `json:"quality_criteria"`
}

func (s *Server) createDomain(w http.ResponseWriter, r *http.Request) {
	var req createDomainRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := "domain-" + uuid.NewString()
	_, err := s.eng.StartWorkflow(r.Context(), engine.WorkflowStartRequest{
		ID:        id,
		Workflow:  bootstrap.Name,
		TaskQueue: visibility.QueueDomainBootstrap,
		Input: bootstrap.Input{
			DomainID:        id,
			OwnerID:         req.OwnerID,
			Title:           req.Title,
			Description:     req.Description,
			Slug:            req.Slug,
			InitialTopics:   req.InitialTopics,
			TargetAudience:  req.TargetAudience,
			QualityCriteria: req.QualityCriteria,
		},
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"workflow_id": id})
}

func (s *Server) domainStatus(w http.ResponseWriter, r *http.Request) {
	var st bootstrap.Status
	if err := s.eng.Query(r.Context(), r.PathValue("workflow_id"), bootstrap.QueryGetStatus, nil, &st); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// submitOwnerFeedback decodes one owner-feedback body (approval, rejection
// with a reason, or approval with revisions) and forwards it as the single
// submit_owner_feedback signal the bootstrap workflow waits on.
func (s *Server) submitOwnerFeedback(w http.ResponseWriter, r *http.Request) {
	var fb domain.OwnerFeedback
	if !decodeJSON(w, r, &fb) {
		return
	}
	workflowID := r.PathValue("workflow_id")
	if err := s.eng.SignalWorkflow(r.Context(), workflowID, bootstrap.SignalSubmitOwnerFeedback, fb); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type createDocumentRequest struct {
	DomainID      string `json:"domain_id"`
	ContributorID string `json:"contributor_id"`
	FileRef       string `json:"file_ref"`
}

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := "doc-" + uuid.NewString()
	_, err := s.eng.StartWorkflow(r.Context(), engine.WorkflowStartRequest{
		ID:        id,
		Workflow:  contribution.Name,
		TaskQueue: visibility.QueueDocumentAnalysis,
		Input: contribution.Input{
			DocumentID:    id,
			DomainID:      req.DomainID,
			ContributorID: req.ContributorID,
			FileRef:       req.FileRef,
		},
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"workflow_id": id})
}

func (s *Server) documentStatus(w http.ResponseWriter, r *http.Request) {
	var st contribution.Status
	if err := s.eng.Query(r.Context(), r.PathValue("workflow_id"), contribution.QueryGetStatus, nil, &st); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) controllerDecision(w http.ResponseWriter, r *http.Request) {
	var review contribution.Review
	if !decodeJSON(w, r, &review) {
		return
	}
	if err := s.eng.SignalWorkflow(r.Context(), r.PathValue("workflow_id"), contribution.SignalSubmitReview, review); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) ownerInbox(w http.ResponseWriter, r *http.Request) {
	query := visibility.OwnerInbox(r.URL.Query().Get("owner_id"), "awaiting_owner", visibility.QueueDomainBootstrap)
	summaries, err := s.eng.ListWorkflows(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) listSignals(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	q := mongo.InboxQuery{
		WorkflowID: r.URL.Query().Get("workflow_id"),
		UnreadOnly: r.URL.Query().Get("unread_only") == "true",
	}
	signals, err := s.signals.Inbox(r.Context(), userID, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, signals)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	count, err := s.signals.UnreadCount(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if err := s.signals.MarkRead(r.Context(), r.PathValue("signal_id"), userID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	workflowID := r.URL.Query().Get("workflow_id")
	n, err := s.signals.MarkAllRead(r.Context(), userID, workflowID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked": n})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
