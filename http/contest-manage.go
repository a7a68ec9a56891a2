package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"

	"github.com/contestrank/backend/scoresrvc"
)

type createContestRequest struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	FormatID        string         `json:"formatId"`
	FormatConfig    map[string]any `json:"formatConfig"`
	PointsPrecision int            `json:"pointsPrecision"`
	StartTime       time.Time      `json:"startTime"`
	EndTime         *time.Time     `json:"endTime"`
	Visible         bool           `json:"visible"`
}

func (httpserver *HttpServer) postCreateContest(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var req createContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := httpserver.scoreSrvc.CreateContest(r.Context(), scoresrvc.Contest{
		ID:              req.ID,
		Title:           req.Title,
		FormatID:        req.FormatID,
		FormatConfig:    req.FormatConfig,
		PointsPrecision: req.PointsPrecision,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Visible:         req.Visible,
	})
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}

type putContestProblemRequest struct {
	Points  float64 `json:"points"`
	Partial bool    `json:"partial"`
	Order   int     `json:"order"`
}

func (httpserver *HttpServer) putContestProblem(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	contestID, err := parseUuidParam(r, "contestId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	problemID, err := parseUuidParam(r, "problemId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req putContestProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err = httpserver.scoreSrvc.PutContestProblem(r.Context(), scoresrvc.ContestProblem{
		ID:        problemID,
		ContestID: contestID,
		Points:    req.Points,
		Partial:   req.Partial,
		Order:     req.Order,
	})
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}

func (httpserver *HttpServer) deleteContestProblem(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	contestID, err := parseUuidParam(r, "contestId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	problemID, err := parseUuidParam(r, "problemId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err = httpserver.scoreSrvc.RemoveContestProblem(r.Context(), problemID, contestID)
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}

type joinContestRequest struct {
	ParticipationID uuid.UUID `json:"participationId"`
	ContestantID    uuid.UUID `json:"contestantId"`
	Virtual         int       `json:"virtual"`
	StartedAt       time.Time `json:"startedAt"`
}

func (httpserver *HttpServer) postJoinContest(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	contestID, err := parseUuidParam(r, "contestId")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req joinContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err = httpserver.scoreSrvc.JoinContest(r.Context(), scoresrvc.Participation{
		ID:           req.ParticipationID,
		ContestID:    contestID,
		ContestantID: req.ContestantID,
		Virtual:      req.Virtual,
		StartedAt:    req.StartedAt,
	})
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}

func (httpserver *HttpServer) getFormats(w http.ResponseWriter, r *http.Request) {
	writeJsonSuccessResponse(w, httpserver.scoreSrvc.Formats().IDs())
}
