package http

import (
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"

	"github.com/contestrank/backend/scoresrvc"
)

type ParticipationResult struct {
	ParticipationID uuid.UUID                           `json:"participationId"`
	ContestID       uuid.UUID                           `json:"contestId"`
	ContestantID    uuid.UUID                           `json:"contestantId"`
	Virtual         int                                 `json:"virtual"`
	Score           float64                             `json:"score"`
	CumTime         int64                               `json:"cumtime"`
	Tiebreaker      float64                             `json:"tiebreaker"`
	Disqualified    bool                                `json:"disqualified"`
	Breakdown       map[uuid.UUID]scoresrvc.ProblemCell `json:"breakdown"`
}

func mapParticipationResult(part scoresrvc.Participation) ParticipationResult {
	return ParticipationResult{
		ParticipationID: part.ID,
		ContestID:       part.ContestID,
		ContestantID:    part.ContestantID,
		Virtual:         part.Virtual,
		Score:           part.Score,
		CumTime:         part.CumTime,
		Tiebreaker:      part.Tiebreaker,
		Disqualified:    part.Disqualified,
		Breakdown:       part.Breakdown,
	}
}

func (httpserver *HttpServer) getParticipationResult(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	participationID, err := parseUuidParam(r, "participationId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	part, err := httpserver.scoreSrvc.GetParticipationResult(r.Context(), participationID)
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, mapParticipationResult(part))
}

func (httpserver *HttpServer) getProblemCell(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	participationID, err := parseUuidParam(r, "participationId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	problemID, err := parseUuidParam(r, "problemId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	cell, err := httpserver.scoreSrvc.GetProblemCell(r.Context(), participationID, problemID)
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, cell)
}
