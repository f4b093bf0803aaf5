package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newConfig() *SystemConfig {
	return NewSystemConfig(Settings{
		EarningPercentage:  10,
		InvestmentDuration: time.Hour,
		SuperAdmin:         "0700000000",
		Admins:             []string{"0700000000"},
		AdminReferralCode:  "ADMIN-AAAAA",
	})
}

func TestSystemConfig_GetReturnsCopy(t *testing.T) {
	c := newConfig()
	snapshot := c.Get()
	snapshot.Admins[0] = "tampered"
	snapshot.EarningPercentage = 99

	assert.Equal(t, []string{"0700000000"}, c.Get().Admins)
	assert.Equal(t, 10.0, c.Get().EarningPercentage)
}

func TestSystemConfig_UpdatePreservesImmutables(t *testing.T) {
	c := newConfig()
	c.Update(func(s *Settings) {
		s.SuperAdmin = "0799999999"
		s.AdminReferralCode = "ADMIN-HACKD"
		s.Admins = nil
		s.EarningPercentage = 15
	})

	st := c.Get()
	assert.Equal(t, "0700000000", st.SuperAdmin)
	assert.Equal(t, "ADMIN-AAAAA", st.AdminReferralCode)
	// The super admin is always on the admin list.
	assert.Contains(t, st.Admins, "0700000000")
	assert.Equal(t, 15.0, st.EarningPercentage)
}

func TestSystemConfig_AdminChecks(t *testing.T) {
	c := newConfig()
	c.Update(func(s *Settings) { s.Admins = append(s.Admins, "0711111111") })

	assert.True(t, c.IsAdmin("0711111111"))
	assert.True(t, c.IsAdmin("0700000000"))
	assert.False(t, c.IsAdmin("0722222222"))

	assert.True(t, c.IsSuperAdmin("0700000000"))
	assert.False(t, c.IsSuperAdmin("0711111111"))
}
