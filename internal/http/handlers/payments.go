package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/57nyambu/dima-backend-sub000/internal/http/middleware"
	"github.com/57nyambu/dima-backend-sub000/internal/http/validation"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments/daraja"
	"github.com/57nyambu/dima-backend-sub000/internal/shared/apperr"
)

type PaymentHandler struct {
	PaymentSv *payments.Service
	WebhookSv *payments.WebhookService
	Logger    *slog.Logger
}

func NewPaymentHandler(paySvc *payments.Service, whSvc *payments.WebhookService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{PaymentSv: paySvc, WebhookSv: whSvc, Logger: logger}
}

type initiateInput struct {
	OrderIDs []string `json:"order_ids" binding:"required,min=1,max=20,dive,uuid"`
	Phone    string   `json:"phone" binding:"required,max=20"`
}

// POST /payments/initiate
//
// Re-issues a push for orders whose previous attempt failed or was never
// confirmed. Issues a fresh correlation token; never retried server-side
// (a second unprompted push would double-charge the buyer).
func (h *PaymentHandler) Initiate(c *gin.Context) {
	buyerID, ok := CurrentBuyer(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Sign in to pay."))
		return
	}

	var in initiateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Fix the highlighted fields.", validation.FromBindError(err, &in)))
		return
	}

	res, err := h.PaymentSv.InitiatePush(c.Request.Context(), payments.InitiatePushInput{
		BuyerID:  buyerID,
		OrderIDs: in.OrderIDs,
		Phone:    in.Phone,
	})
	if err != nil {
		var rej *daraja.RejectedError
		switch {
		case errors.Is(err, daraja.ErrInvalidPhone):
			middleware.Fail(c, apperr.InvalidErr("Enter a valid M-Pesa phone number.", map[string]string{"phone": "Invalid value."}))
		case errors.Is(err, payments.ErrForbidden):
			middleware.Fail(c, apperr.ForbiddenErr("These orders belong to another buyer."))
		case errors.Is(err, payments.ErrNoOrders), errors.Is(err, payments.ErrOrderNotPayable):
			middleware.Fail(c, apperr.ConflictErr("These orders cannot be paid."))
		case errors.Is(err, daraja.ErrAuthFailed):
			middleware.Fail(c, apperr.UnavailableErr("Payment service unavailable. Please try again.", err))
		case errors.Is(err, daraja.ErrTimeout):
			// unknown outcome: the push may still reach the phone
			middleware.Fail(c, apperr.UnavailableErr("Payment request timed out. If no prompt appears, try again.", err))
		case errors.As(err, &rej):
			middleware.Fail(c, apperr.UnavailableErr("Payment request was rejected: "+rej.Desc, err))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"checkout_request_id": res.CheckoutRequestID,
		"customer_message":    res.CustomerMessage,
		"amount_cents":        res.TotalCents,
		"phone":               res.Phone,
	})
}

// POST /payments/callback
//
// The gateway's webhook. Always acked with ResultCode 0, even on internal
// failure, so the gateway does not hammer us with retries; the event is
// persisted first and gaps are recovered by the pending sweep.
func (h *PaymentHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		h.Logger.Warn("callback body read failed", "err", err)
		ackCallback(c)
		return
	}

	if err := h.WebhookSv.HandleSTKCallback(c.Request.Context(), body); err != nil {
		h.Logger.Error("callback processing failed", "err", err)
	}
	ackCallback(c)
}

func ackCallback(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}
