package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Gateway is the verification half of the gateway contract.
type Gateway interface {
	Verify(ctx context.Context, transactionID string) (*VerifyResult, error)
}

// OrderMarker flips an order's payment status once a transaction is
// confirmed.
type OrderMarker interface {
	MarkPaid(ctx context.Context, orderID string) error
}

// Verifier reconciles a gateway callback with the order it belongs to.
type Verifier struct {
	gateway Gateway
	orders  OrderMarker
	logger  *zap.Logger
}

func NewVerifier(gateway Gateway, orders OrderMarker, logger *zap.Logger) *Verifier {
	return &Verifier{
		gateway: gateway,
		orders:  orders,
		logger:  logger,
	}
}

// VerifyPayment recovers the order id from the reference, confirms the
// transaction with the gateway, and marks the order paid. Any failure
// leaves order state untouched.
func (v *Verifier) VerifyPayment(ctx context.Context, transactionID, txRef string) (string, error) {
	orderID, err := OrderIDFromTxRef(txRef)
	if err != nil {
		return "", err
	}

	result, err := v.gateway.Verify(ctx, transactionID)
	if err != nil {
		v.logger.Warn("Gateway verification failed",
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return "", err
	}

	if result.Status != StatusSuccessful {
		return "", fmt.Errorf("payment not successful: status %q", result.Status)
	}
	if result.TxRef != txRef {
		return "", fmt.Errorf("transaction reference mismatch: got %q", result.TxRef)
	}

	if err := v.orders.MarkPaid(ctx, orderID); err != nil {
		return "", fmt.Errorf("failed to mark order paid: %w", err)
	}

	v.logger.Info("Payment verified",
		zap.String("order_id", orderID),
		zap.String("transaction_id", transactionID))

	return orderID, nil
}
