package ledger

import (
	"crypto/rand"
	"math/big"
)

const idCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomString returns n characters drawn from the A-Z0-9 charset.
func randomString(n int) string {
	max := big.NewInt(int64(len(idCharset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = idCharset[idx.Int64()]
	}
	return string(b)
}

// NewReferralCode generates a user referral code, e.g. "INV-7KQ2D".
func NewReferralCode() string { return "INV-" + randomString(5) }

// NewAdminReferralCode generates the startup-only admin code.
func NewAdminReferralCode() string { return "ADMIN-" + randomString(5) }

// NewDepositID generates a deposit ID, e.g. "DEP-2K4H8PQZ".
func NewDepositID() string { return "DEP-" + randomString(8) }

// NewWithdrawalID generates a withdrawal ID, e.g. "WD-9X2B".
func NewWithdrawalID() string { return "WD-" + randomString(4) }
