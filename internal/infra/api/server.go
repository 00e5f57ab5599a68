package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"exam-prep-payments/internal/domain"
	"exam-prep-payments/internal/domain/model"
	"exam-prep-payments/internal/infra/logging"
	"exam-prep-payments/internal/infra/metrics"
	red "exam-prep-payments/internal/infra/redis"
	"exam-prep-payments/internal/usecase"
)

const (
	routeCreateOrder = "create_order"

	defaultPageSize = 20
	maxPageSize     = 100
)

type SubscriptionReader interface {
	Current(ctx context.Context, userID string) (*usecase.SubscriptionView, error)
}

type Options struct {
	RequestTimeout     time.Duration
	RedirectSuccessURL string
	RedirectFailureURL string
	AllowedOrigin      string
	OrderPerMinute     int
}

// Server wires the payment functions and read endpoints to their use cases.
type Server struct {
	payments usecase.PaymentUseCase
	subs     SubscriptionReader
	auth     *AuthManager
	limiter  RateLimiter
	health   func(ctx context.Context) error
	opts     Options
	log      *zerolog.Logger
}

func NewServer(payments usecase.PaymentUseCase, subs SubscriptionReader, auth *AuthManager, limiter RateLimiter, health func(ctx context.Context) error, opts Options, logger *zerolog.Logger) *Server {
	if limiter == nil {
		limiter = NewLocalLimiter()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	return &Server{payments: payments, subs: subs, auth: auth, limiter: limiter, health: health, opts: opts, log: logger}
}

// Handler returns the full route tree behind the middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/functions/v1", func(fr chi.Router) {
		fr.Use(CORS(s.opts.AllowedOrigin))
		fr.Options("/*", func(http.ResponseWriter, *http.Request) {})
		fr.With(RequireAuth(s.auth, s.log)).Post("/create-razorpay-order", s.handleCreateOrder)
		fr.Post("/verify-payment", s.handleVerify)
		fr.Get("/verify-payment", s.handleVerify)
	})

	r.Route("/api/v1", func(ar chi.Router) {
		ar.Use(RequireAuth(s.auth, s.log))
		ar.Get("/payments", s.handleListPayments)
		ar.Get("/subscription", s.handleSubscription)
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return Chain(r,
		Recover(s.log),
		TraceID(),
		RequestLog(s.log),
		Timeout(s.opts.RequestTimeout),
	)
}

type createOrderRequest struct {
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	PlanName           string          `json:"planName"`
	PlanDurationMonths int             `json:"planDurationMonths"`
	CouponCode         string          `json:"couponCode"`
}

type createOrderResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.With(ctx, s.log)
	userID := logging.UserID(ctx)

	ok, err := s.limiter.Allow(ctx, red.UserRouteKey(userID, routeCreateOrder), s.opts.OrderPerMinute, time.Minute)
	if err != nil {
		l.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
	} else if !ok {
		metrics.IncRateLimited(routeCreateOrder)
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: domain.ErrRateLimited.Error()})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, l, fmt.Errorf("%w: %w: %v", domain.ErrOrderCreationFailed, domain.ErrInvalidArgument, err), domain.ErrOrderCreationFailed)
		return
	}

	res, err := s.payments.CreateOrder(ctx, usecase.CreateOrderInput{
		UserID:             userID,
		Amount:             req.Amount,
		Currency:           req.Currency,
		PlanName:           req.PlanName,
		PlanDurationMonths: req.PlanDurationMonths,
		CouponCode:         req.CouponCode,
	})
	if err != nil {
		writeError(w, l, err, domain.ErrOrderCreationFailed)
		return
	}
	writeJSON(w, http.StatusOK, createOrderResponse{
		OrderID:  res.OrderID,
		Amount:   res.AmountMinor,
		Currency: res.Currency,
		KeyID:    res.KeyID,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.With(ctx, s.log)
	start := time.Now()

	proof, err := DecodeProof(r)
	if err != nil {
		metrics.ObserveVerify("unknown", "fail", failureReason(err), time.Since(start))
		writeError(w, l, err, domain.ErrVerificationError)
		return
	}
	ch := proof.Channel()
	res, err := s.payments.Verify(ctx, proof)
	if err != nil {
		metrics.ObserveVerify(string(ch), "fail", failureReason(err), time.Since(start))
		if ch == model.ChannelRedirect && s.redirect(w, r, s.opts.RedirectFailureURL, url.Values{"error": {errorMessage(err, domain.ErrVerificationError)}}) {
			l.Warn().Err(err).Str("channel", string(ch)).Msg("redirect verification failed")
			return
		}
		writeError(w, l, err, domain.ErrVerificationError)
		return
	}

	metrics.ObserveVerify(string(ch), "ok", res.Outcome.String(), time.Since(start))
	l.Info().Str("channel", string(ch)).Str("outcome", res.Outcome.String()).Str("order_id", res.OrderID).Msg("verify handled")
	if ch == model.ChannelRedirect && s.redirect(w, r, s.opts.RedirectSuccessURL, url.Values{"order_id": {res.OrderID}}) {
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true, Message: res.Message})
}

// redirect sends the paying browser to a configured page. False means no
// usable target, and the caller answers with JSON.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, target string, params url.Values) bool {
	if target == "" {
		return false
	}
	loc, err := withQuery(target, params)
	if err != nil {
		s.log.Warn().Err(err).Str("target", target).Msg("bad redirect url")
		return false
	}
	http.Redirect(w, r, loc, http.StatusSeeOther)
	return true
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingParameters):
		return "missing_parameters"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, domain.ErrPaymentRecordNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrSubscriptionUpdateFailed):
		return "subscription_update_failed"
	}
	return "verification_error"
}

type paymentView struct {
	ID                 string     `json:"id"`
	OrderID            string     `json:"orderId"`
	PaymentID          *string    `json:"paymentId"`
	Amount             string     `json:"amount"`
	Currency           string     `json:"currency"`
	PlanName           string     `json:"planName"`
	PlanDurationMonths int        `json:"planDurationMonths"`
	CouponCode         *string    `json:"couponCode"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`
	CompletedAt        *time.Time `json:"completedAt"`
}

func toPaymentView(p *model.Payment) paymentView {
	return paymentView{
		ID:                 p.ID,
		OrderID:            p.GatewayOrderID,
		PaymentID:          p.GatewayPaymentID,
		Amount:             p.Amount.StringFixed(2),
		Currency:           p.Currency,
		PlanName:           p.PlanName,
		PlanDurationMonths: p.PlanDurationMonths,
		CouponCode:         p.CouponCode,
		Status:             string(p.Status),
		CreatedAt:          p.CreatedAt,
		CompletedAt:        p.CompletedAt,
	}
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.With(ctx, s.log)

	limit := defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, l, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidArgument), domain.ErrOperationFailed)
			return
		}
		limit = min(n, maxPageSize)
	}

	items, err := s.payments.ListByUser(ctx, logging.UserID(ctx), limit)
	if err != nil {
		writeError(w, l, err, domain.ErrOperationFailed)
		return
	}
	out := make([]paymentView, 0, len(items))
	for _, p := range items {
		out = append(out, toPaymentView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := s.subs.Current(ctx, logging.UserID(ctx))
	if err != nil {
		writeError(w, logging.With(ctx, s.log), err, domain.ErrOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			logging.With(r.Context(), s.log).Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
