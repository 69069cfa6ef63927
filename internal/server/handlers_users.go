package server

import (
	"net/http"

	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/server/middleware"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// ---------------------------------------------------------------------
// Account handlers. All routes here sit behind AuthMiddleware.
// ---------------------------------------------------------------------

// defaultTransactionLimit is the number of credit transactions returned
// when the request does not ask for a count.
const defaultTransactionLimit = 20

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := s.userService.Get(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req, req.Validate) {
		return
	}

	user, err := s.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := s.userService.Delete(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// creditsResponse is the balance plus the most recent ledger entries.
type creditsResponse struct {
	types.CreditBalance
	Transactions []db.CreditTransaction `json:"transactions"`
}

func (s *Server) handleGetCredits(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit, err := queryInt(r, "limit", defaultTransactionLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.userService.Get(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	transactions, err := s.store.ListCreditTransactions(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if transactions == nil {
		transactions = []db.CreditTransaction{}
	}

	jsonResponse(w, http.StatusOK, creditsResponse{
		CreditBalance: types.CreditBalance{
			Credits:            user.Credits,
			CreditsPerAnalysis: s.analyses.CreditsPerAnalysis(),
		},
		Transactions: transactions,
	})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stats, err := s.store.UserStats(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}
