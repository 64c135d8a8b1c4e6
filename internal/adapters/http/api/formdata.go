package api

import (
	"net/http"

	"github.com/okian/thehub/pkg/logger"
)

// FormDataHandler serves the questionnaire definition.
type FormDataHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewFormDataHandler creates a new form data handler.
func NewFormDataHandler(deps Dependencies, l logger.Logger) *FormDataHandler {
	return &FormDataHandler{deps: deps, logger: l}
}

// HandleGetFormData handles GET /form-data?sportId= requests.
func (h *FormDataHandler) HandleGetFormData(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_form_data"
	sportID := r.URL.Query().Get("sportId")

	fd, err := h.deps.FormData(r.Context(), sportID)
	if err != nil {
		h.logger.Error(r.Context(), "form data failed",
			logger.String("sportId", sportID),
			logger.Error(WrapKind(op, ErrInternal, err)),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", msgFormDataFailed)
		return
	}
	writeJSON(w, http.StatusOK, fd)
}
