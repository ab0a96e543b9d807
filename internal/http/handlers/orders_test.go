package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/http/handlers"
	"github.com/57nyambu/dima-backend-sub000/internal/http/middleware"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/orders"
	"github.com/57nyambu/dima-backend-sub000/internal/shared/testdb"
)

func newOrderRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testdb.Open(t)
	h := handlers.NewOrderHandler(orders.NewRepo(db))

	r := gin.New()
	r.Use(middleware.ErrorHandler(testdb.DiscardLogger()))
	r.GET("/orders", h.List)
	r.GET("/orders/:id", h.Get)
	return r, db
}

func getJSON(r *gin.Engine, path, buyerID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if buyerID != "" {
		req.Header.Set(handlers.HeaderBuyerID, buyerID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedListedOrder(t *testing.T, db *gorm.DB, buyerID, status string, createdAt time.Time) orders.Order {
	t.Helper()
	o := orders.Order{
		ID:            uuid.NewString(),
		OrderNumber:   orders.NewOrderNumber(createdAt),
		BuyerID:       buyerID,
		BusinessID:    uuid.NewString(),
		Status:        status,
		PaymentStatus: orders.PaymentPending,
		TotalCents:    10000,
		Currency:      "KES",
		PaymentMethod: "mpesa",
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}

func TestListOrdersScopedToBuyer(t *testing.T) {
	r, db := newOrderRouter(t)
	buyer := uuid.NewString()
	now := time.Now()

	older := seedListedOrder(t, db, buyer, orders.StatusPending, now.Add(-time.Hour))
	newer := seedListedOrder(t, db, buyer, orders.StatusConfirmed, now)
	seedListedOrder(t, db, uuid.NewString(), orders.StatusPending, now) // someone else's

	w := getJSON(r, "/orders", buyer)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Orders []struct {
			OrderID string `json:"order_id"`
		} `json:"orders"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Orders, 2)
	assert.Equal(t, newer.ID, res.Orders[0].OrderID) // newest first
	assert.Equal(t, older.ID, res.Orders[1].OrderID)
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	r, db := newOrderRouter(t)
	buyer := uuid.NewString()
	now := time.Now()
	seedListedOrder(t, db, buyer, orders.StatusPending, now)
	confirmed := seedListedOrder(t, db, buyer, orders.StatusConfirmed, now)

	w := getJSON(r, "/orders?status=confirmed", buyer)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Orders []struct {
			OrderID string `json:"order_id"`
		} `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Orders, 1)
	assert.Equal(t, confirmed.ID, res.Orders[0].OrderID)
}

func TestGetOrderHidesOtherBuyers(t *testing.T) {
	r, db := newOrderRouter(t)
	o := seedListedOrder(t, db, uuid.NewString(), orders.StatusPending, time.Now())

	// owner sees it
	w := getJSON(r, "/orders/"+o.ID, o.BuyerID)
	assert.Equal(t, http.StatusOK, w.Code)

	// anyone else gets the same answer as for a missing order
	w = getJSON(r, "/orders/"+o.ID, uuid.NewString())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = getJSON(r, "/orders/"+uuid.NewString(), o.BuyerID)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrdersRequireAuth(t *testing.T) {
	r, _ := newOrderRouter(t)
	assert.Equal(t, http.StatusUnauthorized, getJSON(r, "/orders", "").Code)
	assert.Equal(t, http.StatusUnauthorized, getJSON(r, "/orders/"+uuid.NewString(), "").Code)
}
