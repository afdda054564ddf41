package httpapi

import (
	"net/http"

	"trackra-engine/internal/posting"
)

type PostingHandler struct {
	Previewer *posting.Previewer
}

type previewReq struct {
	URL string `json:"url"`
}

func (h PostingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := posting.Canonicalize(req.URL); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	hint, err := h.Previewer.Preview(r.Context(), req.URL)
	if err != nil {
		WriteError(w, r, http.StatusBadGateway, "preview_failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, hint)
}
