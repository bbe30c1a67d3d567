package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ADX777/Timelock-newbot/notify"
	"github.com/ADX777/Timelock-newbot/qrcode"
	"github.com/ADX777/Timelock-newbot/store"
)

type OrderStore interface {
	Create(ctx context.Context, o *store.Order) error
	Get(ctx context.Context, id string) (store.Order, error)
	Orders(ctx context.Context) ([]store.Order, error)
}

// PollerStarter starts a chain poller for a freshly created order.
type PollerStarter interface {
	Watch(ctx context.Context, o store.Order)
}

type Controllers struct {
	Store    OrderStore
	Pollers  PollerStarter
	Notifier notify.Notifier

	ReceivingAddress string

	// AppCtx outlives requests; pollers and async notifications run on it so
	// a client disconnect does not cancel them.
	AppCtx context.Context

	Logger *zap.Logger
}

type createOrderRequest struct {
	OrderID     string      `json:"order_id"`
	Amount      json.Number `json:"amount"`
	Note        string      `json:"note"`
	Coin        string      `json:"coin"`
	TargetPrice string      `json:"target_price"`
	UnlockTime  string      `json:"unlock_time"`
}

func (ct *Controllers) Home(c *gin.Context) {
	c.String(http.StatusOK, "✅ Timelock service is running!")
}

func (ct *Controllers) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	amount, err := store.ParseAmount(req.Amount.String())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	id := req.OrderID
	if id == "" {
		id = uuid.New().String()
	}

	order := store.Order{
		ID:          id,
		Amount:      amount,
		Coin:        req.Coin,
		TargetPrice: req.TargetPrice,
		UnlockTime:  req.UnlockTime,
		Note:        req.Note,
	}
	order.EncryptedPayload = store.EncodePayload(req.Coin, req.TargetPrice, req.UnlockTime, req.Note, amount)

	if err := ct.Store.Create(c.Request.Context(), &order); err != nil {
		if errors.Is(err, store.ErrDuplicateOrder) {
			c.JSON(http.StatusConflict, gin.H{"error": "Order already exists"})
			return
		}
		ct.Logger.Error("create order failed", zap.String("order_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	ct.Pollers.Watch(ct.AppCtx, order)

	go func() {
		if err := ct.Notifier.Send(ct.AppCtx, notify.OrderCreatedMessage(order)); err != nil {
			ct.Logger.Warn("order alert failed", zap.String("order_id", id), zap.Error(err))
		}
	}()

	resp := gin.H{
		"order_id":          order.ID,
		"receiving_address": ct.ReceivingAddress,
		"amount":            store.FormatAmount(order.Amount),
		"actual_amount":     store.FormatAmount(order.ActualAmount),
		"status":            order.Status,
	}
	if qr, err := qrcode.PaymentQR(ct.ReceivingAddress, store.FormatAmount(order.ActualAmount)); err == nil {
		resp["payment_qr"] = qr
	} else {
		ct.Logger.Warn("qr generation failed", zap.String("order_id", id), zap.Error(err))
	}

	c.JSON(http.StatusOK, resp)
}

func (ct *Controllers) OrderStatus(c *gin.Context) {
	id := c.Param("order_id")

	order, err := ct.Store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": store.StatusNotFound})
			return
		}
		ct.Logger.Error("order lookup failed", zap.String("order_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            order.Status,
		"encrypted_payload": order.EncryptedPayload,
		"tx_hash":           order.TxHash,
		"proof_hash":        order.ProofHash,
	})
}

func (ct *Controllers) ListOrders(c *gin.Context) {
	orders, err := ct.Store.Orders(c.Request.Context())
	if err != nil {
		ct.Logger.Error("order listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
