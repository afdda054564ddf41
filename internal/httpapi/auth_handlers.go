package httpapi

import (
	"log"
	"net/http"

	"trackra-engine/internal/appstate"
	"trackra-engine/internal/session"
)

type AuthHandler struct {
	Session *session.Manager
	Engine  *appstate.Engine
}

func (h AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Session.Status())
}

// Health runs the splash-screen probe. It never fails: an unreachable
// backend lands on the login state.
func (h AuthHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.Session.CheckHealth(r.Context())
	WriteJSON(w, http.StatusOK, h.Session.Status())
}

type loginReq struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe *bool  `json:"rememberMe"`
}

func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}
	remember := true
	if req.RememberMe != nil {
		remember = *req.RememberMe
	}
	ctx := mutationContext(r)
	if err := h.Session.Login(ctx, req.Email, req.Password, remember); err != nil {
		writeFailure(w, r, err)
		return
	}
	// A failed first load shows up in the engine's lastError.
	if err := h.Engine.Load(ctx); err != nil {
		log.Printf("level=warn msg=\"initial load failed\" request_id=%s err=%v", RequestIDFrom(r.Context()), err)
	}
	WriteJSON(w, http.StatusOK, h.Session.Status())
}

func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.Session.Logout()
	h.Engine.Reset()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "keychain_error", "signed out, but clearing the keychain failed: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, h.Session.Status())
}
