package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"

	"github.com/contestrank/backend/attemptsrvc"
	"github.com/contestrank/backend/logger"
	"github.com/contestrank/backend/scoresrvc"
)

type HttpServer struct {
	scoreSrvc   *scoresrvc.ScoreSrvc
	attemptSrvc *attemptsrvc.AttemptSrvc
	router      *chi.Mux
}

func NewHttpServer(
	scoreSrvc *scoresrvc.ScoreSrvc,
	attemptSrvc *attemptsrvc.AttemptSrvc,
) *HttpServer {
	router := chi.NewRouter()

	httpLogger := httplog.NewLogger("contestrank", httplog.Options{
		LogLevel:         slog.LevelDebug,
		Concise:          true,
		RequestHeaders:   true,
		MessageFieldName: "message",
	})

	router.Use(middleware.RequestID)
	router.Use(requestIDLogger)
	router.Use(httplog.RequestLogger(httpLogger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           3000,
	}))

	router.Use(newStatsLogger().middleware)

	server := &HttpServer{
		scoreSrvc:   scoreSrvc,
		attemptSrvc: attemptSrvc,
		router:      router,
	}

	server.routes()

	return server
}

func (httpserver *HttpServer) Start(address string) error {
	return http.ListenAndServe(address, httpserver.router)
}

func (httpserver *HttpServer) routes() {
	r := httpserver.router

	// ranking and results, consumed by scoreboard rendering
	r.Get("/participations/{participationId}/result", httpserver.getParticipationResult)
	r.Get("/participations/{participationId}/problems/{problemId}", httpserver.getProblemCell)
	r.Get("/contests/{contestId}/ranking", httpserver.getContestRanking)
	r.Get("/contestants/{contestantId}/problems/{problemId}/contests/{contestId}/best-attempt", httpserver.getBestAttempt)

	// events produced by the judging subsystem
	r.Post("/events/submission-graded", httpserver.postSubmissionGraded)
	r.Post("/events/submission-deleted", httpserver.postSubmissionDeleted)
	r.Post("/events/submission-unlinked", httpserver.postSubmissionUnlinked)
	r.Post("/events/rejudge", httpserver.postRejudge)
	r.Post("/events/disqualify", httpserver.postDisqualify)

	// administrative configuration
	r.Get("/formats", httpserver.getFormats)
	r.Post("/contests", httpserver.postCreateContest)
	r.Post("/contests/{contestId}/participations", httpserver.postJoinContest)
	r.Put("/contests/{contestId}/problems/{problemId}", httpserver.putContestProblem)
	r.Delete("/contests/{contestId}/problems/{problemId}", httpserver.deleteContestProblem)
	r.Post("/contests/{contestId}/format", httpserver.postContestFormat)
	r.Post("/contests/{contestId}/lock", httpserver.postContestLock)
	r.Post("/contests/{contestId}/visibility", httpserver.postContestVisibility)
}

// requestIDLogger puts a request-scoped logger on the context so service
// and repo code can pick it up via logger.FromContext.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseUuidParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}
