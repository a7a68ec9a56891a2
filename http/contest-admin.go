package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
)

type contestFormatRequest struct {
	FormatID string         `json:"formatId"`
	Config   map[string]any `json:"config"`
}

// postContestFormat changes the active scoring format. Until the bulk
// rescore it triggers has drained, the contest's ranking is stale.
func (httpserver *HttpServer) postContestFormat(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	contestID, err := parseUuidParam(r, "contestId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req contestFormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err = httpserver.scoreSrvc.SetContestFormat(r.Context(), contestID, req.FormatID, req.Config)
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}

type contestLockRequest struct {
	// Cutoff of null clears the lock and re-includes later submissions.
	Cutoff *time.Time `json:"cutoff"`
}

func (httpserver *HttpServer) postContestLock(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	contestID, err := parseUuidParam(r, "contestId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req contestLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err = httpserver.scoreSrvc.SetContestLockCutoff(r.Context(), contestID, req.Cutoff)
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}

type contestVisibilityRequest struct {
	Visible bool `json:"visible"`
}

func (httpserver *HttpServer) postContestVisibility(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	contestID, err := parseUuidParam(r, "contestId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req contestVisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err = httpserver.scoreSrvc.SetContestVisibility(r.Context(), contestID, req.Visible)
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}
