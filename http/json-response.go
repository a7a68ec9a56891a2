package http

import (
	"log/slog"
	"net/http"

	"github.com/contestrank/backend/httpjson"
)

func writeJsonSuccessResponse(w http.ResponseWriter, data any) {
	httpjson.WriteSuccessJson(w, data)
}

func handleJsonSrvcError(logger *slog.Logger, w http.ResponseWriter, err error) {
	httpjson.HandleError(logger, w, err)
}
