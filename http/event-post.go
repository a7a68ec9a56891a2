package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"

	"github.com/contestrank/backend/scoresrvc"
)

type submissionGradedRequest struct {
	SubmissionID    uuid.UUID `json:"submissionId"`
	ParticipationID uuid.UUID `json:"participationId"`
	ProblemID       uuid.UUID `json:"problemId"`
	Points          float64   `json:"points"`
	SubmittedAt     time.Time `json:"submittedAt"`
	SourceRef       string    `json:"sourceRef"`
}

func (httpserver *HttpServer) postSubmissionGraded(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var req submissionGradedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := httpserver.scoreSrvc.HandleSubmissionGraded(r.Context(), scoresrvc.SubmissionGraded{
		SubmissionID:    req.SubmissionID,
		ParticipationID: req.ParticipationID,
		ProblemID:       req.ProblemID,
		Points:          req.Points,
		SubmittedAt:     req.SubmittedAt,
		SourceRef:       req.SourceRef,
	})
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}

type submissionDeletedRequest struct {
	SubmissionID    uuid.UUID `json:"submissionId"`
	ParticipationID uuid.UUID `json:"participationId"`
	ProblemID       uuid.UUID `json:"problemId"`
}

func (httpserver *HttpServer) postSubmissionDeleted(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var req submissionDeletedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := httpserver.scoreSrvc.HandleSubmissionDeleted(r.Context(), scoresrvc.SubmissionDeleted{
		SubmissionID:    req.SubmissionID,
		ParticipationID: req.ParticipationID,
		ProblemID:       req.ProblemID,
	})
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}

type submissionUnlinkedRequest struct {
	SubmissionID uuid.UUID `json:"submissionId"`
}

func (httpserver *HttpServer) postSubmissionUnlinked(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var req submissionUnlinkedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := httpserver.scoreSrvc.HandleSubmissionUnlinked(r.Context(), scoresrvc.SubmissionUnlinked{
		SubmissionID: req.SubmissionID,
	})
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}

type rejudgeRequest struct {
	SubmissionIDs []uuid.UUID `json:"submissionIds"`
}

func (httpserver *HttpServer) postRejudge(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var req rejudgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := httpserver.scoreSrvc.HandleRejudge(r.Context(), scoresrvc.RejudgeRequested{
		SubmissionIDs: req.SubmissionIDs,
	})
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}

type disqualifyRequest struct {
	ParticipationID uuid.UUID `json:"participationId"`
	Disqualified    bool      `json:"disqualified"`
}

func (httpserver *HttpServer) postDisqualify(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var req disqualifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := httpserver.scoreSrvc.HandleDisqualified(r.Context(), scoresrvc.ParticipationDisqualified{
		ParticipationID: req.ParticipationID,
		Disqualified:    req.Disqualified,
	})
	if err != nil {
		handleJsonSrvcError(logger, w, err)
		return
	}

	writeJsonSuccessResponse(w, nil)
}
