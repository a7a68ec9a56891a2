package scoresrvc

import (
	"net/http"

	"github.com/contestrank/backend/srvcerror"
)

const (
	ErrCodeInvalidFormatConfig   = "invalid_format_config"
	ErrCodeParticipationNotFound = "participation_not_found"
	ErrCodeContestNotFound       = "contest_not_found"
)

func ErrInvalidFormatConfig() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidFormatConfig,
		"the contest format configuration is invalid",
	).SetHttpStatusCode(http.StatusUnprocessableEntity)
}

func ErrParticipationNotFound() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeParticipationNotFound,
		"the participation was not found",
	).SetHttpStatusCode(http.StatusNotFound)
}

func ErrContestNotFound() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeContestNotFound,
		"the contest was not found",
	).SetHttpStatusCode(http.StatusNotFound)
}
