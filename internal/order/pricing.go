package order

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// UnitPrice applies a percentage discount and rounds half away from zero to
// two decimal places.
func UnitPrice(price, discountPercentage decimal.Decimal) decimal.Decimal {
	if discountPercentage.IsZero() {
		return price.Round(2)
	}
	discount := price.Mul(discountPercentage).Div(hundred)
	return price.Sub(discount).Round(2)
}

func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
