package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"PesaVault/internal/core/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all process-level configuration: credentials, endpoints and
// the initial values of the runtime-mutable system settings.
type Config struct {
	AppEnv string

	TelegramToken string
	DatabaseURL   string
	RedisAddr     string // optional; empty selects the in-memory session store
	ListenAddr    string

	PayHeroBaseURL   string
	PayHeroAuth      string
	PayHeroChannelID int

	SuperAdminPhone string

	// Initial system settings (runtime-mutable afterwards via admin commands)
	EarningPercentage   float64
	ReferralPercentage  float64
	InvestmentDuration  time.Duration
	MinInvestment       float64
	MaxInvestment       float64
	MinWithdrawal       float64
	MaxWithdrawal       float64
	DepositNumber       string
	DepositInstructions string
}

var envBindings = map[string]string{
	"app.env":              "APP_ENV",
	"telegram.token":       "TELEGRAM_BOT_TOKEN",
	"database.url":         "DATABASE_URL",
	"redis.addr":           "REDIS_ADDR",
	"listen.addr":          "LISTEN_ADDR",
	"payhero.base_url":     "PAYHERO_BASE_URL",
	"payhero.auth":         "PAYHERO_AUTH",
	"payhero.channel_id":   "PAYHERO_CHANNEL_ID",
	"admin.super_phone":    "SUPER_ADMIN_PHONE",
	"settings.earn_pct":    "EARNING_PERCENTAGE",
	"settings.ref_pct":     "REFERRAL_PERCENTAGE",
	"settings.duration":   "INVESTMENT_DURATION_MINUTES",
	"settings.min_invest": "MIN_INVESTMENT",
	"settings.max_invest": "MAX_INVESTMENT",
	"settings.min_wd":     "MIN_WITHDRAWAL",
	"settings.max_wd":     "MAX_WITHDRAWAL",
	"settings.dep_number": "DEPOSIT_NUMBER",
	"settings.dep_instr":  "DEPOSIT_INSTRUCTIONS",
}

// Load loads configuration from the environment (and .env, if present).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env is fine in prod; anything else is not.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	viper.SetDefault("app.env", "dev")
	viper.SetDefault("listen.addr", ":8080")
	viper.SetDefault("payhero.base_url", "https://backend.payhero.co.ke/api/v2")
	viper.SetDefault("payhero.channel_id", 724)
	viper.SetDefault("settings.earn_pct", 10.0)
	viper.SetDefault("settings.ref_pct", 5.0)
	viper.SetDefault("settings.duration", 60)
	viper.SetDefault("settings.min_invest", 1000.0)
	viper.SetDefault("settings.max_invest", 150000.0)
	viper.SetDefault("settings.min_wd", 1000.0)
	viper.SetDefault("settings.max_wd", 1000000.0)
	viper.SetDefault("settings.dep_instr", "Send the amount to the deposit number and wait for approval.")

	cfg := Config{
		AppEnv:              viper.GetString("app.env"),
		TelegramToken:       viper.GetString("telegram.token"),
		DatabaseURL:         viper.GetString("database.url"),
		RedisAddr:           viper.GetString("redis.addr"),
		ListenAddr:          viper.GetString("listen.addr"),
		PayHeroBaseURL:      viper.GetString("payhero.base_url"),
		PayHeroAuth:         viper.GetString("payhero.auth"),
		PayHeroChannelID:    viper.GetInt("payhero.channel_id"),
		SuperAdminPhone:     viper.GetString("admin.super_phone"),
		EarningPercentage:   viper.GetFloat64("settings.earn_pct"),
		ReferralPercentage:  viper.GetFloat64("settings.ref_pct"),
		InvestmentDuration:  time.Duration(viper.GetInt("settings.duration")) * time.Minute,
		MinInvestment:       viper.GetFloat64("settings.min_invest"),
		MaxInvestment:       viper.GetFloat64("settings.max_invest"),
		MinWithdrawal:       viper.GetFloat64("settings.min_wd"),
		MaxWithdrawal:       viper.GetFloat64("settings.max_wd"),
		DepositNumber:       viper.GetString("settings.dep_number"),
		DepositInstructions: viper.GetString("settings.dep_instr"),
	}

	if cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is not set in environment or .env file")
	}
	if cfg.SuperAdminPhone == "" {
		return nil, errors.New("SUPER_ADMIN_PHONE is not set in environment or .env file")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set in environment or .env file")
	}

	return &cfg, nil
}

// InitialSettings builds the runtime SystemConfig seed from process config.
func (c *Config) InitialSettings() domain.Settings {
	return domain.Settings{
		EarningPercentage:   c.EarningPercentage,
		ReferralPercentage:  c.ReferralPercentage,
		InvestmentDuration:  c.InvestmentDuration,
		MinInvestment:       c.MinInvestment,
		MaxInvestment:       c.MaxInvestment,
		MinWithdrawal:       c.MinWithdrawal,
		MaxWithdrawal:       c.MaxWithdrawal,
		DepositNumber:       c.DepositNumber,
		DepositInstructions: c.DepositInstructions,
		WithdrawalInstructions: "Your withdrawal will be processed shortly. " +
			"Please ensure your payout number is correct.",
		SuperAdmin: c.SuperAdminPhone,
		Admins:     []string{c.SuperAdminPhone},
	}
}
