package negotiate

import (
	"errors"
	"fmt"
)

var ErrInvalidBounds = errors.New("invalid product bounds")

// ProductBounds fixes the price corridor for one session. Immutable once the
// session has them, whether supplied at start or derived from the classifier
// on the first turn.
type ProductBounds struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	ListPrice float64 `json:"list_price"`
	MinPrice  float64 `json:"min_price"`
	Currency  string  `json:"currency"`
}

func (b ProductBounds) Validate() error {
	if b.ListPrice <= 0 {
		return fmt.Errorf("%w: list_price must be > 0", ErrInvalidBounds)
	}
	if b.MinPrice <= 0 {
		return fmt.Errorf("%w: min_price must be > 0", ErrInvalidBounds)
	}
	if b.MinPrice > b.ListPrice {
		return fmt.Errorf("%w: min_price %.2f exceeds list_price %.2f", ErrInvalidBounds, b.MinPrice, b.ListPrice)
	}
	return nil
}

func (b ProductBounds) isZero() bool {
	return b.ListPrice == 0 && b.MinPrice == 0
}
