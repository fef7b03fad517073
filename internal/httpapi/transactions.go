package httpapi

import (
	"net/http"

	"github.com/tinoosan/spendlog/internal/service/transaction"
)

// postTransaction handles POST /transactions. The body was validated by middleware.
func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostTransaction).(transaction.Input)
	if !ok {
		s.internalError(w, r, "post transaction", errMissingValidated)
		return
	}
	saved, err := s.svc.Create(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, "create transaction", err)
		return
	}
	observeCreated(saved)
	toJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

// listTransactions handles GET /transactions
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.svc.List(r.Context())
	if err != nil {
		s.internalError(w, r, "list transactions", err)
		return
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}

// getTransaction handles GET /transactions/{id}
func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(ctxKeyTransactionID).(int64)
	t, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, "get transaction", err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(t))
}

// deleteTransaction handles DELETE /transactions/{id}
func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(ctxKeyTransactionID).(int64)
	if err := s.svc.Delete(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, "delete transaction", err)
		return
	}
	transactionsDeleted.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) totalIncome(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.TotalIncome(r.Context())
	if err != nil {
		s.internalError(w, r, "total income", err)
		return
	}
	toJSON(w, http.StatusOK, totalIncomeResponse{TotalIncome: number(sum)})
}

func (s *Server) totalSpending(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.TotalSpending(r.Context())
	if err != nil {
		s.internalError(w, r, "total spending", err)
		return
	}
	toJSON(w, http.StatusOK, totalSpendingResponse{TotalSpending: number(sum)})
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Balance(r.Context())
	if err != nil {
		s.internalError(w, r, "balance", err)
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{Balance: balanceNumber(b)})
}

// summary handles GET /transactions/summary
func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Summary(r.Context())
	if err != nil {
		s.internalError(w, r, "summary", err)
		return
	}
	toJSON(w, http.StatusOK, summaryResponse{
		TotalIncome:   number(sum.TotalIncome),
		TotalSpending: number(sum.TotalSpending),
		Balance:       balanceNumber(sum.Balance),
	})
}
