package cart

import "go.uber.org/zap"

// Notifier receives the user-facing cart events ("Added X to cart",
// "Updated quantity to N", ...). The UI layer turns these into toasts.
type Notifier interface {
	ItemAdded(productName string, quantity int32)
	QuantityUpdated(productName string, quantity int32)
	ItemRemoved(productName string)
	CartCleared()
}

type NopNotifier struct{}

func (NopNotifier) ItemAdded(string, int32)       {}
func (NopNotifier) QuantityUpdated(string, int32) {}
func (NopNotifier) ItemRemoved(string)            {}
func (NopNotifier) CartCleared()                  {}

// LogNotifier writes cart events to the service log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) ItemAdded(productName string, quantity int32) {
	n.Logger.Info("Added to cart",
		zap.String("product", productName),
		zap.Int32("quantity", quantity))
}

func (n LogNotifier) QuantityUpdated(productName string, quantity int32) {
	n.Logger.Info("Updated cart quantity",
		zap.String("product", productName),
		zap.Int32("quantity", quantity))
}

func (n LogNotifier) ItemRemoved(productName string) {
	n.Logger.Info("Removed from cart", zap.String("product", productName))
}

func (n LogNotifier) CartCleared() {
	n.Logger.Info("Cart cleared")
}
