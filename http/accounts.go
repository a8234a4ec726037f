package http

import (
	"net/http"
	"time"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, err)
		return
	}

	account, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, account)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, err)
		return
	}

	account, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleError(w, err)
		return
	}

	token, expiresAt, err := h.config.Tokens.Issue(account.ID)
	if err != nil {
		HandleError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	_ = WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC(),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	caller, err := mustCaller(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	account, err := h.service.Account(r.Context(), caller)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	caller, err := mustCaller(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	report, err := h.service.DeleteAccount(r.Context(), caller)
	if err != nil {
		HandleError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: AccessTokenCookie, Value: "", Path: "/", MaxAge: -1})
	_ = WriteJSON(w, http.StatusOK, report)
}

