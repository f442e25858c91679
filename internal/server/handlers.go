package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ppiankov/chorus/internal/fanout"
	"github.com/ppiankov/chorus/internal/history"
	"github.com/ppiankov/chorus/internal/model"
)

type queryRequest struct {
	Prompt          string                                      `json:"prompt"`
	Providers       []string                                    `json:"providers"`
	APIKeys         map[model.ProviderName]string               `json:"apiKeys"`
	ProviderConfigs map[model.ProviderName]model.ProviderConfig `json:"providerConfigs" validate:"omitempty,dive"`
	UseRetrieval    bool                                        `json:"useRetrieval"`
	SystemPrompt    string                                      `json:"systemPrompt"`
	Summarize       bool                                        `json:"summarize"`
}

type queryResponse struct {
	OK              bool                    `json:"ok"`
	ID              string                  `json:"id"`
	Results         []model.ProviderAnswer  `json:"results"`
	Snippets        []model.RetrievalSource `json:"snippets"`
	UsedRetrieval   bool                    `json:"usedRetrieval"`
	Summary         *model.Summary          `json:"summary,omitempty"`
	SummaryStrategy string                  `json:"summaryStrategy,omitempty"`
}

type metaSummaryRequest struct {
	Prompt  string                        `json:"prompt"`
	Results []model.ProviderAnswer        `json:"results"`
	Sources []model.RetrievalSource       `json:"sources"`
	APIKeys map[model.ProviderName]string `json:"apiKeys"`
}

type expandRequest struct {
	OriginalPrompt  string                                      `json:"originalPrompt"`
	Results         []model.ProviderAnswer                      `json:"results"`
	Providers       []string                                    `json:"providers"`
	APIKeys         map[model.ProviderName]string               `json:"apiKeys"`
	ProviderConfigs map[model.ProviderName]model.ProviderConfig `json:"providerConfigs" validate:"omitempty,dive"`
	SystemPrompt    string                                      `json:"systemPrompt"`
	UseRetrieval    *bool                                       `json:"useRetrieval"` // Defaults to true
	Focus           string                                      `json:"focus"`
}

type expandResponse struct {
	Results []model.ProviderAnswer `json:"results"`
}

type configResponse struct {
	OK     bool          `json:"ok"`
	Status fanout.Status `json:"status"`
}

type historyResponse struct {
	OK   bool              `json:"ok"`
	Runs []model.RunRecord `json:"runs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		s.logger.Warn("healthz write failed", zap.Error(err))
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(w, r, s.validate, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	providers := model.ParseProviders(req.Providers)
	if len(providers) == 0 {
		providers = s.providers
	}

	res, err := s.backend.Run(r.Context(), fanout.RunRequest{
		Prompt:       req.Prompt,
		Providers:    providers,
		APIKeys:      req.APIKeys,
		Configs:      req.ProviderConfigs,
		SystemPrompt: req.SystemPrompt,
		UseRetrieval: req.UseRetrieval,
		Summarize:    req.Summarize,
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	resp := queryResponse{
		OK:            true,
		ID:            res.ID,
		Results:       res.Results,
		Snippets:      res.Sources,
		UsedRetrieval: res.UsedRetrieval,
	}
	if resp.Snippets == nil {
		resp.Snippets = []model.RetrievalSource{}
	}
	if res.Summary != nil {
		resp.Summary = &res.Summary.Summary
		resp.SummaryStrategy = string(res.Summary.Strategy)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetaSummary(w http.ResponseWriter, r *http.Request) {
	var req metaSummaryRequest
	if err := decodeJSON(w, r, s.validate, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.backend.Summarize(r.Context(), fanout.SummarizeRequest{
		Prompt:  req.Prompt,
		Answers: req.Results,
		Sources: req.Sources,
		APIKeys: req.APIKeys,
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("X-Summary-Strategy", string(result.Strategy))
	writeJSON(w, http.StatusOK, result.Summary)
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := decodeJSON(w, r, s.validate, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	providers := model.ParseProviders(req.Providers)
	if len(providers) == 0 {
		providers = model.AnsweredProviders(req.Results)
	}
	useRetrieval := req.UseRetrieval == nil || *req.UseRetrieval

	results, err := s.backend.Expand(r.Context(), fanout.ExpandRequest{
		OriginalPrompt: req.OriginalPrompt,
		Previous:       req.Results,
		Providers:      providers,
		APIKeys:        req.APIKeys,
		Configs:        req.ProviderConfigs,
		SystemPrompt:   req.SystemPrompt,
		UseRetrieval:   useRetrieval,
		Focus:          fanout.ParseFocus(req.Focus),
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expandResponse{Results: results})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{OK: true, Status: s.backend.Status(r.Context())})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	runs := []model.RunRecord{}
	if s.history != nil {
		runs = s.history.List(r.URL.Query().Get("fingerprint"))
	}
	writeJSON(w, http.StatusOK, historyResponse{OK: true, Runs: runs})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, history.ErrNotFound.Error())
		return
	}
	record, err := s.history.Get(chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("history lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// fail maps orchestrator errors to HTTP statuses
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fanout.ErrMissingPrompt):
		writeError(w, http.StatusBadRequest, "Missing prompt")
	case errors.Is(err, fanout.ErrNoProviders):
		writeError(w, http.StatusBadRequest, "No providers requested")
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
