package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/pkg/logger"
)

// recommendationRequest mirrors the OpenAPI schema for POST /recommendations.
type recommendationRequest struct {
	Answers model.Answers `json:"answers"`
	SportID string        `json:"sportId"`
}

type recommendationResponse struct {
	Recommendations []model.Recommendation `json:"recommendations"`
}

// RecommendationsHandler handles recommendation requests.
type RecommendationsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(deps Dependencies, l logger.Logger) *RecommendationsHandler {
	return &RecommendationsHandler{deps: deps, logger: l}
}

// HandlePostRecommendations handles POST /recommendations requests.
func (h *RecommendationsHandler) HandlePostRecommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_recommendations"
	ctx := r.Context()

	var req recommendationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		err = WrapKind(op, ErrBadRequest, err)
		h.logger.Debug(ctx, "rejected recommendation request", logger.Error(err))
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	recs, err := h.deps.Recommend(ctx, req.Answers, req.SportID)
	if err != nil {
		h.logger.Error(ctx, "recommendation failed",
			logger.String("sportId", req.SportID),
			logger.Error(WrapKind(op, ErrInternal, err)),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", msgRecommendationsFailed)
		return
	}
	if recs == nil {
		recs = []model.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recommendationResponse{Recommendations: recs})
}
