package domain

// Monetary amounts are integer cents throughout the acquisition context.

// DepositToleranceCents is the accepted rounding slack around the required
// deposit: one whole currency unit either way.
const DepositToleranceCents int64 = 100

// RequiredDepositCents returns the deposit owed for an agreed price: 10%.
func RequiredDepositCents(agreedPriceCents int64) int64 {
	return agreedPriceCents / 10
}

// DepositWithinTolerance reports whether a paid amount satisfies the 10%
// deposit requirement within the rounding tolerance.
func DepositWithinTolerance(paidCents, agreedPriceCents int64) bool {
	required := RequiredDepositCents(agreedPriceCents)
	diff := paidCents - required
	if diff < 0 {
		diff = -diff
	}
	return diff <= DepositToleranceCents
}
