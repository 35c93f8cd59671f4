package market

import "math/big"

var (
	basisPoints = big.NewInt(10_000)
	// interestRateScale scales annual and per-block interest rates. All rate
	// arithmetic is integer with this explicit scale; multiplication happens
	// before division so floor-rounding lands at the documented step only.
	interestRateScale = mustBigInt("100000000000000000") // 1e17
	// priceScale scales oracle asset values.
	priceScale = big.NewInt(1_000_000_000) // 1e9
	bigOne     = big.NewInt(1)
)

// blocksPerYear converts annual rates into per-block rates.
const blocksPerYear = 2_102_400

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// mulDiv returns floor(a*b/den). den must be positive.
func mulDiv(a, b, den *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, den)
}

// bpsOf returns floor(amount*bps/10000).
func bpsOf(amount *big.Int, bps uint64) *big.Int {
	return mulDiv(amount, new(big.Int).SetUint64(bps), basisPoints)
}

func clone(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
