package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ai-caption-backend/internal/domain"
	"ai-caption-backend/internal/domain/model"
	"ai-caption-backend/internal/domain/ports/adapter"
	"ai-caption-backend/internal/infra/metrics"
	"ai-caption-backend/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinels to HTTP statuses in one place so
// handlers stay thin.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidConfirmation):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, domain.ErrInsufficientCredits):
		writeError(w, http.StatusPaymentRequired, "insufficient credits")
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "free limit reached, purchase credits to continue")
	case errors.Is(err, domain.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "another generation is in progress")
	case errors.Is(err, domain.ErrOrderCreation):
		writeError(w, http.StatusBadGateway, "payment provider unavailable, try again")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func limitParam(r *http.Request, def, max int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ---- payment lifecycle ----

type createOrderRequest struct {
	PackageID string `json:"package_id"`
}

type orderResponse struct {
	TransactionID    string `json:"transaction_id"`
	ProviderOrderID  string `json:"razorpay_order_id"`
	AmountMinorUnits int64  `json:"amount"`
	Currency         string `json:"currency"`
	Credits          int64  `json:"credits"`
	Status           string `json:"status"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PackageID == "" {
		writeError(w, http.StatusBadRequest, "package_id is required")
		return
	}

	intent, err := s.purchaseUC.Initiate(r.Context(), userID, req.PackageID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("package_id", req.PackageID).Msg("order initiation failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{
		TransactionID:    intent.TransactionID,
		ProviderOrderID:  intent.ProviderOrderID,
		AmountMinorUnits: intent.AmountMinorUnits,
		Currency:         intent.Currency,
		Credits:          intent.CreditsRequested,
		Status:           string(intent.Status),
	})
}

type verifyRequest struct {
	ProviderOrderID   string `json:"razorpay_order_id"`
	ProviderPaymentID string `json:"razorpay_payment_id"`
	Signature         string `json:"razorpay_signature"`
	Source            string `json:"source"` // "checkout" | "probe"; defaults to checkout
}

type verifyResponse struct {
	Verified      bool   `json:"verified"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	CreditsAdded  int64  `json:"credits_added"`
	TotalCredits  int64  `json:"total_credits"`
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	source := req.Source
	if source != "probe" {
		source = "checkout"
	}

	res, err := s.purchaseUC.Confirm(r.Context(), usecase.Confirmation{
		ProviderOrderID:   req.ProviderOrderID,
		ProviderPaymentID: req.ProviderPaymentID,
		Signature:         req.Signature,
		Source:            source,
	})
	if err != nil {
		metrics.ObserveVerifyDuration("rejected", time.Since(start).Seconds())
		if errors.Is(err, domain.ErrVerificationFailed) {
			// The client shows "verification failed"; credits were never
			// touched. 200 with verified:false keeps the client state
			// machine simple.
			writeJSON(w, http.StatusOK, verifyResponse{Verified: false})
			return
		}
		writeDomainError(w, err)
		return
	}
	metrics.ObserveVerifyDuration("verified", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, verifyResponse{
		Verified:      res.Verified,
		TransactionID: res.Intent.TransactionID,
		Status:        string(res.Intent.Status),
		CreditsAdded:  res.CreditsAdded,
		TotalCredits:  res.TotalCredits,
	})
}

// handlePaymentCallback serves the provider's browser redirect after
// checkout. It runs the same confirmation funnel and then bounces the user
// back into the app through its deep link scheme.
func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	conf := usecase.Confirmation{
		ProviderOrderID:   q.Get("razorpay_order_id"),
		ProviderPaymentID: q.Get("razorpay_payment_id"),
		Signature:         q.Get("razorpay_signature"),
		Source:            "deeplink",
	}

	target, _ := url.Parse(s.deepLinkBase)
	values := url.Values{}

	res, err := s.purchaseUC.Confirm(r.Context(), conf)
	if err != nil {
		values.Set("status", "failed")
		s.log.Warn().Err(err).Str("provider_order_id", conf.ProviderOrderID).Msg("callback confirmation failed")
	} else {
		values.Set("status", "success")
		values.Set("transaction_id", res.Intent.TransactionID)
		values.Set("credits_added", strconv.FormatInt(res.CreditsAdded, 10))
	}
	target.RawQuery = values.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *Server) handleCancelPayment(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	transactionID := chi.URLParam(r, "transactionID")

	if err := s.purchaseUC.Cancel(r.Context(), userID, transactionID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type failRequest struct {
	Description string `json:"description"`
}

func (s *Server) handleFailPayment(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	transactionID := chi.URLParam(r, "transactionID")

	var req failRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := s.purchaseUC.Fail(r.Context(), userID, transactionID, req.Description); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "failed"})
}

func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	list, err := s.purchaseUC.History(r.Context(), userID, limitParam(r, 20, 100))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	type item struct {
		TransactionID string `json:"transaction_id"`
		PackageID     string `json:"package_id"`
		Amount        int64  `json:"amount"`
		Currency      string `json:"currency"`
		Credits       int64  `json:"credits"`
		Status        string `json:"status"`
		CreatedAt     string `json:"created_at"`
	}
	out := make([]item, 0, len(list))
	for _, p := range list {
		out = append(out, item{
			TransactionID: p.TransactionID,
			PackageID:     p.PackageID,
			Amount:        p.AmountMinorUnits,
			Currency:      p.Currency,
			Credits:       p.CreditsRequested,
			Status:        string(p.Status),
			CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

// ---- credits and packages ----

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	bal, err := s.purchaseUC.Balance(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"credits": bal.Credits})
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.purchaseUC.ListPackages(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	type item struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Credits  int64  `json:"credits"`
		Price    int64  `json:"price"`
		Currency string `json:"currency"`
	}
	out := make([]item, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, item{ID: p.ID, Name: p.Name, Credits: p.Credits, Price: p.PriceMinorUnits, Currency: p.Currency})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

// ---- generation ----

type generateRequest struct {
	Kind   string `json:"kind"`
	Prompt string `json:"prompt"`
	Tone   string `json:"tone"`
}

type captionResponse struct {
	ID        string `json:"id,omitempty"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	genReq := adapter.GenerationRequest{Kind: req.Kind, Prompt: req.Prompt, Tone: req.Tone}

	if userID, ok := UserIDFromContext(r.Context()); ok {
		res, err := s.generationUC.Generate(r.Context(), userID, genReq)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"caption":           toCaptionResponse(res.Caption),
			"credits_remaining": res.CreditsRemaining,
		})
		return
	}

	deviceID := r.Header.Get("X-Device-ID")
	if deviceID == "" {
		writeError(w, http.StatusUnauthorized, "sign in or supply X-Device-ID for the free tier")
		return
	}
	rec, err := s.generationUC.GenerateAnonymous(r.Context(), deviceID, genReq)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"caption": toCaptionResponse(rec)})
}

func (s *Server) handleCaptionHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	list, err := s.generationUC.History(r.Context(), userID, limitParam(r, 20, 100))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]captionResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCaptionResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

func toCaptionResponse(c *model.Caption) captionResponse {
	return captionResponse{
		ID:        c.ID,
		Kind:      string(c.Kind),
		Text:      c.Text,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}
