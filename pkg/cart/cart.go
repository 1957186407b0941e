package cart

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ProductSnapshot is the product state captured when a line is added. The
// cart owns the copy; it is never re-fetched while the line exists.
type ProductSnapshot struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	SKU   string  `json:"sku,omitempty"`
	Price float64 `json:"price"`
	Image string  `json:"image,omitempty"`
	Stock int32   `json:"stock"`
}

// Variant overrides the product price when selected.
type Variant struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Price      float64           `json:"price"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type LineItem struct {
	ID       string          `json:"id"`
	Product  ProductSnapshot `json:"product"`
	Quantity int32           `json:"quantity"`
	Variant  *Variant        `json:"selected_variant,omitempty"`
}

// UnitPrice is the variant price when a variant is selected, otherwise the
// product price. All totals use this.
func (li LineItem) UnitPrice() float64 {
	if li.Variant != nil {
		return li.Variant.Price
	}
	return li.Product.Price
}

func (li LineItem) variantKey() string {
	if li.Variant != nil {
		return li.Variant.ID
	}
	return "default"
}

// clone gives the cart its own copy of the variant snapshot; later caller
// mutations must not change line pricing retroactively.
func (v *Variant) clone() *Variant {
	if v == nil {
		return nil
	}
	cp := *v
	if v.Attributes != nil {
		cp.Attributes = make(map[string]string, len(v.Attributes))
		for k, val := range v.Attributes {
			cp.Attributes[k] = val
		}
	}
	return &cp
}

// Cart is the client-session shopping cart: an ordered list of line items,
// at most one per (product id, variant id) pair. Mutations are synchronous
// total functions; none of them can fail.
type Cart struct {
	items    []LineItem
	open     bool
	notifier Notifier
}

func New(notifier Notifier) *Cart {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Cart{notifier: notifier}
}

// AddItem merges into an existing line with the same (product, variant)
// identity, otherwise appends a fresh line. Quantities below 1 default to 1.
// Stock limits are not enforced here.
func (c *Cart) AddItem(product ProductSnapshot, quantity int32, variant *Variant) {
	if quantity < 1 {
		quantity = 1
	}

	key := "default"
	if variant != nil {
		key = variant.ID
	}

	for i := range c.items {
		if c.items[i].Product.ID == product.ID && c.items[i].variantKey() == key {
			c.items[i].Quantity += quantity
			c.notifier.QuantityUpdated(product.Name, c.items[i].Quantity)
			return
		}
	}

	c.items = append(c.items, LineItem{
		ID:       uuid.NewString(),
		Product:  product,
		Quantity: quantity,
		Variant:  variant.clone(),
	})
	c.notifier.ItemAdded(product.Name, quantity)
}

// RemoveItem drops the line with the given id. Idempotent: an absent id is a
// no-op and fires no notification.
func (c *Cart) RemoveItem(itemID string) {
	for i := range c.items {
		if c.items[i].ID == itemID {
			name := c.items[i].Product.Name
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.notifier.ItemRemoved(name)
			return
		}
	}
}

// UpdateQuantity replaces the quantity on the matching line. A quantity of
// zero or below removes the line, so no zero or negative quantity can ever
// be observed. Unknown ids are a no-op.
func (c *Cart) UpdateQuantity(itemID string, quantity int32) {
	if quantity <= 0 {
		c.RemoveItem(itemID)
		return
	}
	for i := range c.items {
		if c.items[i].ID == itemID {
			c.items[i].Quantity = quantity
			c.notifier.QuantityUpdated(c.items[i].Product.Name, quantity)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.items = nil
	c.notifier.CartCleared()
}

// Items returns a copy; callers cannot mutate cart state through it.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	for i := range out {
		out[i].Variant = out[i].Variant.clone()
	}
	return out
}

func (c *Cart) Open()   { c.open = true }
func (c *Cart) Close()  { c.open = false }
func (c *Cart) Toggle() { c.open = !c.open }

// IsOpen is a pure UI-visibility flag with no business semantics.
func (c *Cart) IsOpen() bool { return c.open }

// MarshalItems serializes only the line items. Derived totals are never
// persisted; they are recomputed after RestoreItems so a pricing policy
// change can never leave stale totals behind.
func (c *Cart) MarshalItems() ([]byte, error) {
	return json.Marshal(c.items)
}

func (c *Cart) RestoreItems(data []byte) error {
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	c.items = items
	return nil
}
