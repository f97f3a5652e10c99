package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"finsight/internal/core"
)

type createTransactionRequest struct {
	AccountID   string   `json:"accountId"`
	Amount      *float64 `json:"amount"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`
	Type        string   `json:"type"`
	Method      string   `json:"method"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTransactions(w, r)
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	case http.MethodDelete:
		s.handleDeleteTransaction(w, r)
	default:
		writeMethodNotAllowed(w, strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodDelete}, ", "))
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, r, core.Unauthorized("Token is invalid"))
		return
	}

	transactions, err := s.service.ListTransactions(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	publics := make([]core.PublicTransaction, 0, len(transactions))
	for _, t := range transactions {
		publics = append(publics, t.Public())
	}
	writeJSON(w, http.StatusOK, publics)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, r, core.Unauthorized("Token is invalid"))
		return
	}

	// A non-numeric amount is a decode error here, which surfaces as a 400
	// rather than an unhandled failure deeper down.
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, core.Invalid("Invalid request body"))
		return
	}

	var amount float64
	if req.Amount != nil {
		amount = *req.Amount
	}

	tx, err := s.service.CreateTransaction(r.Context(), user.ID, core.Transaction{
		AccountID:   req.AccountID,
		Amount:      amount,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
		Type:        req.Type,
		Method:      req.Method,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx.Public())
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, r, core.Unauthorized("Token is invalid"))
		return
	}

	id := r.URL.Query().Get("id")
	if err := s.service.DeleteTransaction(r.Context(), user.ID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successBody{Success: true})
}
