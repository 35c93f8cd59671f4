package explorer

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Display formatting for indexers and operator tooling. The core keeps every
// quantity as a scaled integer; only this package converts to decimal text.

const (
	interestRateScaleDigits = 17
	priceScaleDigits        = 9
	blocksPerYear           = 2_102_400
)

// AnnualRatePercent renders a scaled per-block rate as an annual percentage
// with the given number of fraction digits.
func AnnualRatePercent(scaledRatePerBlock *big.Int, places int32) string {
	rate := decimal.NewFromBigInt(scaledRatePerBlock, 0)
	annual := rate.Mul(decimal.NewFromInt(blocksPerYear))
	percent := annual.Shift(2 - interestRateScaleDigits)
	return percent.StringFixed(places) + "%"
}

// ScaledPriceString renders an oracle price in the common value unit.
func ScaledPriceString(scaledPrice *big.Int) string {
	return decimal.NewFromBigInt(scaledPrice, -priceScaleDigits).String()
}

// EntryLabel returns the display label for a ledger entry leg.
func EntryLabel(reason, entryType, asset string) string {
	asset = strings.TrimSpace(asset)
	label := reason + " " + strings.ToLower(entryType)
	if asset == "" {
		return label
	}
	return label + " (" + asset + ")"
}
