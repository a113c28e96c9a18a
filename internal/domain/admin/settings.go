package admin

import "encoding/json"

// Settings documents live in admin_settings as keyed JSONB with an explicit
// version column. Reads migrate old documents forward in memory; the next
// write persists the current shape. Unknown future versions are returned
// as-is rather than guessed at.
const (
	SettingReward   = "reward_settings"
	SettingSecurity = "security_settings"
	SettingSystem   = "system_settings"

	rewardSettingsVersion   = 2
	securitySettingsVersion = 1
	systemSettingsVersion   = 2
)

// RewardSettings controls payout amounts and the approval threshold.
type RewardSettings struct {
	WelcomeAmount      int64 `json:"welcome_amount"`
	PlayGameAmount     int64 `json:"playgame_amount"`
	UploadGameAmount   int64 `json:"uploadgame_amount"`
	DailyCheckinAmount int64 `json:"daily_checkin_amount"`
	CooldownHours      int   `json:"cooldown_hours"`
	ApprovalThreshold  int64 `json:"approval_threshold"`
}

// SecuritySettings controls the trust evaluator knobs.
type SecuritySettings struct {
	MaxAccountsPerIP  int `json:"max_accounts_per_ip"`
	HourlyClaimLimit  int `json:"hourly_claim_limit"`
	MinAccountAgeDays int `json:"min_account_age_days"`
}

// SystemSettings controls the kill switch and payout distribution caps.
type SystemSettings struct {
	ClaimsPaused      bool             `json:"claims_paused"`
	MaxDailyPayout    int64            `json:"max_daily_payout"`
	AgeGroupDailyCaps map[string]int64 `json:"age_group_daily_caps"`
	DefaultDailyCap   int64            `json:"default_daily_cap"`
}

// DefaultAgeGroupCaps returns the per-age-group daily payout caps used until
// an admin overrides them. Callers get a fresh map each time.
func DefaultAgeGroupCaps() map[string]int64 {
	return map[string]int64{
		"3-6":   10000,
		"7-12":  30000,
		"13-16": 50000,
		"17+":   100000,
	}
}

// migrateRewardSettings upgrades a stored document to the current version.
func migrateRewardSettings(raw json.RawMessage, version int) (RewardSettings, bool, error) {
	var s RewardSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, false, err
	}
	migrated := false
	if version < 2 {
		// v1 predates the approval queue
		if s.ApprovalThreshold == 0 {
			s.ApprovalThreshold = 50000
		}
		migrated = true
	}
	return s, migrated, nil
}

func migrateSecuritySettings(raw json.RawMessage, version int) (SecuritySettings, bool, error) {
	var s SecuritySettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, false, err
	}
	return s, false, nil
}

func migrateSystemSettings(raw json.RawMessage, version int) (SystemSettings, bool, error) {
	var s SystemSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, false, err
	}
	migrated := false
	if version < 2 {
		// v1 had a single global cap; per-age-group caps came later
		if s.AgeGroupDailyCaps == nil {
			s.AgeGroupDailyCaps = DefaultAgeGroupCaps()
		}
		if s.DefaultDailyCap == 0 {
			s.DefaultDailyCap = 30000
		}
		migrated = true
	}
	return s, migrated, nil
}
