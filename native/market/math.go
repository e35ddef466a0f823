package market

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Stake amounts, credits and prices ride a 64-bit wire format even though
// account balances are arbitrary-precision. The helpers below reject values
// that would wrap instead of silently truncating them.

// checkedUint64 verifies the value fits the 64-bit accounting width.
func checkedUint64(value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return ErrArithmeticOverflow
	}
	v, overflow := uint256.FromBig(value)
	if overflow || !v.IsUint64() {
		return ErrArithmeticOverflow
	}
	return nil
}

// checkedPayout doubles a winning stake, failing if either the stake or the
// payout exceeds the accounting width.
func checkedPayout(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrArithmeticOverflow
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	payout, carry := new(uint256.Int).AddOverflow(v, v)
	if carry || !payout.IsUint64() {
		return nil, ErrArithmeticOverflow
	}
	return payout.ToBig(), nil
}
