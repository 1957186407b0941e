package payment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Transaction references embed the internal order id so the verification
// step can recover it from the gateway callback. Underscore is the
// delimiter: order ids are UUIDs and can never contain one, so the split is
// unambiguous.
const (
	txRefPrefix    = "SF"
	txRefDelimiter = "_"
)

var ErrMalformedTxRef = errors.New("malformed transaction reference")

// NewTxRef builds the reference handed to the gateway:
// SF_<order id>_<random suffix>.
func NewTxRef(orderID string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return strings.Join([]string{txRefPrefix, orderID, suffix}, txRefDelimiter)
}

// OrderIDFromTxRef recovers the order id embedded in a reference.
func OrderIDFromTxRef(txRef string) (string, error) {
	parts := strings.Split(txRef, txRefDelimiter)
	if len(parts) != 3 || parts[0] != txRefPrefix || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedTxRef, txRef)
	}
	return parts[1], nil
}
