package domain

import (
	"sync"
	"time"
)

// Settings is the snapshot of all runtime-mutable system parameters.
// It is read by every validation and computation path and mutated only by
// the admin command processor.
type Settings struct {
	EarningPercentage  float64
	ReferralPercentage float64
	InvestmentDuration time.Duration
	MinInvestment      float64
	MaxInvestment      float64
	MinWithdrawal      float64
	MaxWithdrawal      float64

	DepositNumber          string
	DepositInstructions    string
	WithdrawalInstructions string

	SuperAdmin string   // phone, immutable
	Admins     []string // phones, always contains SuperAdmin

	AdminReferralCode string // generated at startup, immutable
}

// SystemConfig guards a Settings value for concurrent readers and the
// single admin writer. Reads take a snapshot; a config change need not be
// linearized against in-flight validations.
type SystemConfig struct {
	mu sync.RWMutex
	v  Settings
}

// NewSystemConfig wraps the initial settings.
func NewSystemConfig(initial Settings) *SystemConfig {
	if !containsString(initial.Admins, initial.SuperAdmin) {
		initial.Admins = append(initial.Admins, initial.SuperAdmin)
	}
	return &SystemConfig{v: initial}
}

// Get returns a copy of the current settings.
func (c *SystemConfig) Get() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.v
	s.Admins = append([]string(nil), c.v.Admins...)
	return s
}

// Update applies fn to the settings under the write lock. The super admin
// identity and the admin referral code cannot be changed.
func (c *SystemConfig) Update(fn func(*Settings)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	superAdmin := c.v.SuperAdmin
	adminCode := c.v.AdminReferralCode
	fn(&c.v)
	c.v.SuperAdmin = superAdmin
	c.v.AdminReferralCode = adminCode
	if !containsString(c.v.Admins, superAdmin) {
		c.v.Admins = append(c.v.Admins, superAdmin)
	}
}

// IsAdmin reports whether the given phone is on the admin list.
func (c *SystemConfig) IsAdmin(phone string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return containsString(c.v.Admins, phone)
}

// IsSuperAdmin reports whether the given phone is the super admin.
func (c *SystemConfig) IsSuperAdmin(phone string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return phone == c.v.SuperAdmin
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
