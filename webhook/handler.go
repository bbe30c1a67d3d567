// Push-based confirmation path: the payment processor posts a signed
// notification, and only a "finished" payload with a valid signature over the
// exact raw body can reach the coordinator. Everything here is
// fail-closed: no signature, no state change.

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ADX777/Timelock-newbot/store"
)

type OrderGetter interface {
	Get(ctx context.Context, id string) (store.Order, error)
}

type Confirmer interface {
	ConfirmPayment(ctx context.Context, orderID, txHash, proofHash string) error
}

type ProofPublisher interface {
	Publish(ctx context.Context, data []byte) (string, error)
}

// SettlementLookup resolves the settlement tx hash for deliveries that do not
// carry one inline.
type SettlementLookup interface {
	PayinHash(ctx context.Context, paymentID int64) (string, error)
}

type Handler struct {
	secret     string
	store      OrderGetter
	confirmer  Confirmer
	proofs     ProofPublisher
	settlement SettlementLookup
	logger     *zap.Logger
}

func NewHandler(secret string, st OrderGetter, cf Confirmer, pr ProofPublisher, sl SettlementLookup, logger *zap.Logger) *Handler {
	return &Handler{
		secret:     secret,
		store:      st,
		confirmer:  cf,
		proofs:     pr,
		settlement: sl,
		logger:     logger.Named("webhook"),
	}
}

// Handle processes one ipn delivery.
func (h *Handler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	sig := c.GetHeader(SigHeader)
	if sig == "" || !Verify(h.secret, body, sig) {
		h.logger.Warn("rejected delivery with bad signature",
			zap.String("remote", c.ClientIP()), zap.Bool("signed", sig != ""))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	if p.PaymentStatus != StatusFinished {
		// acknowledged so the processor stops redelivering, but not a
		// confirmation signal
		h.logger.Info("ignoring non-final payment status",
			zap.String("order_id", p.OrderID), zap.String("status", p.PaymentStatus))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()

	order, err := h.store.Get(ctx, p.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.logger.Error("order lookup failed", zap.String("order_id", p.OrderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if order.Status == store.StatusPaid {
		// duplicate delivery after the other path already won
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	proofHash, err := h.proofs.Publish(ctx, []byte(order.EncryptedPayload))
	if err != nil {
		// surfaced as a retryable failure: the processor redelivers
		h.logger.Error("proof publish failed", zap.String("order_id", p.OrderID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "proof storage unavailable"})
		return
	}

	txHash := p.PayinHash
	if txHash == "" {
		txHash, err = h.settlement.PayinHash(ctx, p.PaymentID)
		if err != nil {
			h.logger.Error("settlement lookup failed",
				zap.Int64("payment_id", p.PaymentID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "settlement unavailable"})
			return
		}
	}

	if err := h.confirmer.ConfirmPayment(ctx, p.OrderID, txHash, proofHash); err != nil {
		h.logger.Error("confirm failed", zap.String("order_id", p.OrderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
