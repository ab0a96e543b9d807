package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/57nyambu/dima-backend-sub000/internal/http/middleware"
	"github.com/57nyambu/dima-backend-sub000/internal/http/validation"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/orders"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments/daraja"
	"github.com/57nyambu/dima-backend-sub000/internal/shared/apperr"
)

type CheckoutHandler struct {
	Splitter  *orders.Splitter
	PaymentSv *payments.Service
	Logger    *slog.Logger
}

func NewCheckoutHandler(splitter *orders.Splitter, paySvc *payments.Service, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{Splitter: splitter, PaymentSv: paySvc, Logger: logger}
}

type checkoutItemInput struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type checkoutInput struct {
	Items         []checkoutItemInput `json:"items" binding:"required,min=1,max=100,dive"`
	Shipping      map[string]any      `json:"shipping" binding:"required"`
	PaymentMethod string              `json:"payment_method" binding:"required,oneof=push cod card"`
	Phone         string              `json:"phone" binding:"omitempty,max=20"`
}

type orderView struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	VendorName  string `json:"vendor_name"`
	TotalCents  int64  `json:"total_cents"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

type failureView struct {
	VendorID   string `json:"vendor_id"`
	VendorName string `json:"vendor_name"`
	Reason     string `json:"reason"`
}

// POST /checkout
//
// Splits the cart into per-vendor orders, then initiates payment for the
// orders that were created. A vendor group that fails (stock) becomes a
// failure entry; it never blocks the other vendors. A payment-initiation
// failure leaves the created orders pending and payable.
func (h *CheckoutHandler) Post(c *gin.Context) {
	buyerID, ok := CurrentBuyer(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Sign in to check out."))
		return
	}

	var in checkoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Fix the highlighted fields.", validation.FromBindError(err, &in)))
		return
	}
	if in.PaymentMethod == "push" && in.Phone == "" {
		middleware.Fail(c, apperr.InvalidErr("Fix the highlighted fields.", map[string]string{"phone": "This field is required."}))
		return
	}

	shippingJSON, err := json.Marshal(in.Shipping)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	lines := make([]orders.CartLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, orders.CartLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	res, err := h.Splitter.Checkout(c.Request.Context(), orders.CheckoutInput{
		BuyerID:       buyerID,
		Lines:         lines,
		PaymentMethod: methodFor(in.PaymentMethod),
		ShippingJSON:  shippingJSON,
	})
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrCartEmpty):
			middleware.Fail(c, apperr.InvalidErr("Cart is empty.", nil))
		case errors.Is(err, orders.ErrProductUnavailable):
			middleware.Fail(c, apperr.InvalidErr("Some products are no longer available.", nil))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	views := make([]orderView, 0, len(res.Orders))
	orderIDs := make([]string, 0, len(res.Orders))
	for _, o := range res.Orders {
		views = append(views, orderView{
			OrderID:     o.Order.ID,
			OrderNumber: o.Order.OrderNumber,
			VendorName:  o.BusinessName,
			TotalCents:  o.Order.TotalCents,
			Currency:    o.Order.Currency,
			Status:      o.Order.Status,
		})
		orderIDs = append(orderIDs, o.Order.ID)
	}
	failures := make([]failureView, 0, len(res.Failures))
	for _, f := range res.Failures {
		failures = append(failures, failureView{VendorID: f.BusinessID, VendorName: f.BusinessName, Reason: f.Reason})
	}

	paymentInfo := gin.H{"status": "skipped"}
	if len(orderIDs) > 0 {
		switch in.PaymentMethod {
		case "push":
			pr, perr := h.PaymentSv.InitiatePush(c.Request.Context(), payments.InitiatePushInput{
				BuyerID:  buyerID,
				OrderIDs: orderIDs,
				Phone:    in.Phone,
			})
			if perr != nil {
				// orders stand; the buyer can retry via POST /payments/initiate
				paymentInfo = gin.H{"status": "failed", "reason": paymentFailureReason(perr)}
				h.Logger.Warn("checkout payment initiation failed", "buyer_id", buyerID, "err", perr)
			} else {
				paymentInfo = gin.H{
					"status":              "initiated",
					"checkout_request_id": pr.CheckoutRequestID,
					"customer_message":    pr.CustomerMessage,
					"amount_cents":        pr.TotalCents,
					"phone":               pr.Phone,
				}
			}
		case "cod", "card":
			if perr := h.PaymentSv.RecordOffline(c.Request.Context(), buyerID, orderIDs, in.PaymentMethod); perr != nil {
				middleware.Fail(c, apperr.Wrap(perr))
				return
			}
			paymentInfo = gin.H{"status": "recorded", "method": in.PaymentMethod}
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"orders":       views,
		"failures":     failures,
		"payment_info": paymentInfo,
	})
}

func methodFor(apiMethod string) string {
	if apiMethod == "push" {
		return payments.MethodMpesa
	}
	return apiMethod
}

func paymentFailureReason(err error) string {
	var rej *daraja.RejectedError
	switch {
	case errors.Is(err, daraja.ErrInvalidPhone):
		return "invalid_phone"
	case errors.Is(err, daraja.ErrAuthFailed):
		return "gateway_auth_failed"
	case errors.Is(err, daraja.ErrTimeout):
		return "gateway_timeout"
	case errors.As(err, &rej):
		return "gateway_rejected: " + rej.Desc
	default:
		return "internal"
	}
}
