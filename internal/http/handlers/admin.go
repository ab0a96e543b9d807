package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/http/middleware"
	"github.com/57nyambu/dima-backend-sub000/internal/http/validation"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/marketplace"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/orders"
	"github.com/57nyambu/dima-backend-sub000/internal/shared/apperr"
)

type AdminHandler struct {
	Lifecycle *orders.LifecycleService
	Settings  *marketplace.Manager
}

func NewAdminHandler(lc *orders.LifecycleService, settings *marketplace.Manager) *AdminHandler {
	return &AdminHandler{Lifecycle: lc, Settings: settings}
}

type transitionInput struct {
	Action string `json:"action" binding:"required,oneof=confirm ship deliver cancel"`
	Note   string `json:"note" binding:"omitempty,max=255"`
}

// POST /admin/orders/:id/transition
func (h *AdminHandler) Transition(c *gin.Context) {
	adminID, ok := CurrentAdmin(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Admin access required."))
		return
	}

	var in transitionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Fix the highlighted fields.", validation.FromBindError(err, &in)))
		return
	}

	err := h.Lifecycle.Transition(c.Request.Context(), orders.TransitionInput{
		OrderID: c.Param("id"),
		ActorID: adminID,
		Action:  in.Action,
		Note:    in.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			middleware.Fail(c, apperr.NotFoundErr("Order not found."))
		case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrNotActionable):
			middleware.Fail(c, apperr.ConflictErr("This transition is not allowed."))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type settingsInput struct {
	CommissionRateBps *int   `json:"commission_rate_bps" binding:"omitempty,min=0,max=9999"`
	ProcessingFeeBps  *int   `json:"processing_fee_bps" binding:"omitempty,min=0,max=9999"`
	MinOrderCents     *int64 `json:"min_order_cents" binding:"omitempty,min=0"`
}

// PUT /admin/settings
//
// Writes the marketplace rates and invalidates the settings cache, so the
// next commission calculation sees the new values.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	if _, ok := CurrentAdmin(c); !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Admin access required."))
		return
	}

	var in settingsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Fix the highlighted fields.", validation.FromBindError(err, &in)))
		return
	}

	s, err := h.Settings.Update(c.Request.Context(), marketplace.UpdateInput{
		CommissionRateBps: in.CommissionRateBps,
		ProcessingFeeBps:  in.ProcessingFeeBps,
		MinOrderCents:     in.MinOrderCents,
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"commission_rate_bps": s.CommissionRateBps,
		"processing_fee_bps":  s.ProcessingFeeBps,
		"min_order_cents":     s.MinOrderCents,
		"currency":            s.Currency,
	})
}
