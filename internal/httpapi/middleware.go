package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/spendlog/internal/service/transaction"
)

type ctxKey string

const (
	ctxKeyPostTransaction ctxKey = "validatedPostTransaction"
	ctxKeyTransactionID   ctxKey = "transactionID"
)

const maxBodyBytes = 1 << 20

// validatePostTransaction decodes POST /transactions, checks required fields and
// the service's business rules, and stores the validated input in the request
// context for the handler to use.
func (s *Server) validatePostTransaction() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postTransactionRequest
			dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error(), "invalid_json")
				return
			}
			switch {
			case req.TransactionDate == nil:
				unprocessable(w, "transaction_date: required")
				return
			case req.Title == nil:
				unprocessable(w, "title: required")
				return
			case req.IsIncome == nil:
				unprocessable(w, "is_income: required")
				return
			case req.Spending == nil:
				unprocessable(w, "spending: required")
				return
			}
			in := transaction.Input{
				Date:     *req.TransactionDate,
				Title:    *req.Title,
				IsIncome: *req.IsIncome,
				Spending: *req.Spending,
			}
			if err := s.svc.Validate(in); err != nil {
				unprocessable(w, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostTransaction, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseTransactionID reads the {id} path parameter as an int64.
func (s *Server) parseTransactionID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
			if err != nil {
				badRequest(w, "invalid transaction id", "invalid_id")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyTransactionID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
