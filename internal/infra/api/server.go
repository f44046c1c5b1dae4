package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-caption-backend/internal/usecase"
)

// Server is the HTTP surface the mobile app talks to: payment lifecycle,
// credit balance, caption generation and history.
type Server struct {
	purchaseUC   usecase.PurchaseUseCase
	generationUC usecase.GenerationUseCase
	auth         *AuthManager
	deepLinkBase string
	log          *zerolog.Logger
}

func NewServer(
	purchaseUC usecase.PurchaseUseCase,
	generationUC usecase.GenerationUseCase,
	auth *AuthManager,
	deepLinkBase string,
	logger *zerolog.Logger,
) *Server {
	if deepLinkBase == "" {
		deepLinkBase = "captionapp://payment"
	}
	return &Server{
		purchaseUC:   purchaseUC,
		generationUC: generationUC,
		auth:         auth,
		deepLinkBase: deepLinkBase,
		log:          logger,
	}
}

// Router builds the chi mux with all routes attached.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/packages", s.handleListPackages)

		// The provider redirects the browser here after checkout; no auth
		// header survives that hop, so the route is public and the payload
		// is trusted only after signature verification.
		r.Get("/payments/callback", s.handlePaymentCallback)

		r.With(s.auth.Optional).Post("/generate", s.handleGenerate)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Require)

			r.Post("/orders", s.handleCreateOrder)
			r.Post("/payments/verify", s.handleVerifyPayment)
			r.Post("/payments/{transactionID}/cancel", s.handleCancelPayment)
			r.Post("/payments/{transactionID}/fail", s.handleFailPayment)
			r.Get("/payments", s.handlePaymentHistory)
			r.Get("/credits", s.handleCredits)
			r.Get("/captions", s.handleCaptionHistory)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
