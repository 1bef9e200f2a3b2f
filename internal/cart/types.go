package cart

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrEmptyCart = errors.New("cart must be non-empty")

// LineItem is one purchasable row in a cart. UnitPrice is in major currency
// units (e.g. 19.99 USD); conversion to processor minor units happens at
// checkout time, never here.
type LineItem struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	CoverImageURL string          `json:"cover_image_url,omitempty"`
}

// Cart is the ordered collection of line items for one session.
// At most one entry exists per item ID; quantity never drops below 1
// (decrementing a quantity-1 item removes the row entirely).
type Cart struct {
	Items []LineItem `json:"items"`
}
