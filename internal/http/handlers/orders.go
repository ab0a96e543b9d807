package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/http/middleware"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/orders"
	"github.com/57nyambu/dima-backend-sub000/internal/shared/apperr"
)

type OrderHandler struct {
	Repo *orders.Repo
}

func NewOrderHandler(repo *orders.Repo) *OrderHandler {
	return &OrderHandler{Repo: repo}
}

// GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	buyerID, ok := CurrentBuyer(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Sign in to view orders."))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	res, err := h.Repo.ListByBuyer(c.Request.Context(), orders.ListByBuyerParams{
		BuyerID:  buyerID,
		Page:     page,
		PageSize: 20,
		Status:   c.Query("status"),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	items := make([]gin.H, 0, len(res.Items))
	for _, o := range res.Items {
		items = append(items, orderJSON(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": items, "total": res.Total, "page": page})
}

// GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	buyerID, ok := CurrentBuyer(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Sign in to view orders."))
		return
	}

	o, items, err := h.Repo.GetWithItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Order not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if o.BuyerID != buyerID {
		middleware.Fail(c, apperr.NotFoundErr("Order not found."))
		return
	}

	lines := make([]gin.H, 0, len(items))
	for _, it := range items {
		lines = append(lines, gin.H{
			"product_id":  it.ProductID,
			"quantity":    it.Quantity,
			"price_cents": it.PriceCents,
		})
	}

	body := orderJSON(o)
	body["items"] = lines
	c.JSON(http.StatusOK, body)
}

func orderJSON(o orders.Order) gin.H {
	return gin.H{
		"order_id":       o.ID,
		"order_number":   o.OrderNumber,
		"vendor_id":      o.BusinessID,
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
		"payment_method": o.PaymentMethod,
		"total_cents":    o.TotalCents,
		"currency":       o.Currency,
		"created_at":     o.CreatedAt,
	}
}
