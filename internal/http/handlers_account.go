package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"finsight/internal/core"
)

type createAccountRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListAccounts(w, r)
	case http.MethodPost:
		s.handleCreateAccount(w, r)
	case http.MethodDelete:
		s.handleDeleteAccount(w, r)
	default:
		writeMethodNotAllowed(w, strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodDelete}, ", "))
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, r, core.Unauthorized("Token is invalid"))
		return
	}

	accounts, err := s.service.ListAccounts(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	publics := make([]core.PublicAccount, 0, len(accounts))
	for _, a := range accounts {
		publics = append(publics, a.Public())
	}
	writeJSON(w, http.StatusOK, publics)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, r, core.Unauthorized("Token is invalid"))
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, core.Invalid("Invalid request body"))
		return
	}

	account, err := s.service.CreateAccount(r.Context(), user.ID, req.Name, req.Icon)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, account.Public())
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, r, core.Unauthorized("Token is invalid"))
		return
	}

	id := r.URL.Query().Get("id")
	if err := s.service.DeleteAccount(r.Context(), user.ID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successBody{Success: true})
}
