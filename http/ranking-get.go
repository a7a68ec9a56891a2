package http

import (
	"net/http"

	"github.com/go-chi/httplog/v2"
)

func (httpserver *HttpServer) getContestRanking(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	contestID, err := parseUuidParam(r, "contestId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	parts, err := httpserver.scoreSrvc.GetContestRanking(r.Context(), contestID)
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	response := make([]ParticipationResult, 0, len(parts))
	for _, part := range parts {
		response = append(response, mapParticipationResult(part))
	}

	writeJsonSuccessResponse(w, response)
}

func (httpserver *HttpServer) getBestAttempt(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	contestantID, err := parseUuidParam(r, "contestantId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	problemID, err := parseUuidParam(r, "problemId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	contestID, err := parseUuidParam(r, "contestId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	attempt, err := httpserver.attemptSrvc.GetBestAttempt(r.Context(), contestantID, problemID, contestID)
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, attempt)
}
