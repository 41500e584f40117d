package common

import (
	"fmt"
	"math"
)

// priceTickTolerance bounds how far the scaled price may sit from an exact
// tick multiple before the order is rejected.
const priceTickTolerance = 1e-8

// ValidatePrice checks an order's limit price against the instrument's tick
// granularity. The price must be strictly positive and, scaled by
// 10^PriceDecimals, must land on an integer within tolerance. Read-only.
func ValidatePrice(order Order, instrument Instrument) error {
	if order.Price <= 0 {
		return fmt.Errorf("price %.4f must be strictly positive", order.Price)
	}

	factor := math.Pow(10, float64(instrument.PriceDecimals))
	scaled := order.Price * factor
	rounded := math.Round(scaled)

	if math.Abs(scaled-rounded) > priceTickTolerance {
		return fmt.Errorf("price %.6f is not a multiple of the instrument tick (%d decimals)",
			order.Price, instrument.PriceDecimals)
	}
	return nil
}

// ValidateQuantity checks an order's quantity against the instrument's lot
// size. The quantity must be strictly positive and an exact multiple of the
// lot size. Read-only.
func ValidateQuantity(order Order, instrument Instrument) error {
	if order.Quantity <= 0 {
		return fmt.Errorf("quantity %d must be strictly positive", order.Quantity)
	}
	if order.Quantity%instrument.LotSize != 0 {
		return fmt.Errorf("quantity %d is not a multiple of lot size %d",
			order.Quantity, instrument.LotSize)
	}
	return nil
}
