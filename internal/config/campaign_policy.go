package config

import (
	"errors"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CampaignPolicy bounds what an organization may schedule in one campaign.
type CampaignPolicy struct {
	AllowedChannels   []string `mapstructure:"allowedChannels"`
	MaxDays           int      `mapstructure:"maxDays"`
	MaxRecipients     int      `mapstructure:"maxRecipients"`
	MaxAIContentCount int      `mapstructure:"maxAIContentCount"`
}

func DefaultCampaignPolicy() CampaignPolicy {
	return CampaignPolicy{
		AllowedChannels:   []string{"web", "whatsapp", "email", "sms"},
		MaxDays:           366,
		MaxRecipients:     10000,
		MaxAIContentCount: 60,
	}
}

// AllowsChannel reports whether channel is in the allow list.
func (p CampaignPolicy) AllowsChannel(channel string) bool {
	return slices.Contains(p.AllowedChannels, strings.ToLower(strings.TrimSpace(channel)))
}

type CampaignPolicyHolder struct {
	current atomic.Value // holds CampaignPolicy
}

// NewStaticCampaignPolicyHolder returns a holder that never reloads.
func NewStaticCampaignPolicyHolder(policy CampaignPolicy) *CampaignPolicyHolder {
	holder := &CampaignPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewCampaignPolicyHolder(log *zap.Logger) (*CampaignPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("campaign")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/donora/config")
	v.AddConfigPath("/etc/donora")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DONORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCampaignPolicy()
	v.SetDefault("campaign.allowedChannels", defaults.AllowedChannels)
	v.SetDefault("campaign.maxDays", defaults.MaxDays)
	v.SetDefault("campaign.maxRecipients", defaults.MaxRecipients)
	v.SetDefault("campaign.maxAIContentCount", defaults.MaxAIContentCount)

	configFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		configFound = false
	}

	policy, err := decodeCampaignPolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticCampaignPolicyHolder(policy)
	if !configFound {
		return holder, nil
	}

	log = log.Named("config.campaign_policy")
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeCampaignPolicy(v)
		if err != nil {
			log.Warn("campaign policy reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("campaign policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *CampaignPolicyHolder) Get() CampaignPolicy {
	return h.current.Load().(CampaignPolicy)
}

func decodeCampaignPolicy(v *viper.Viper) (CampaignPolicy, error) {
	var policy CampaignPolicy
	if err := v.UnmarshalKey("campaign", &policy); err != nil {
		return CampaignPolicy{}, err
	}
	for i, channel := range policy.AllowedChannels {
		policy.AllowedChannels[i] = strings.ToLower(strings.TrimSpace(channel))
	}
	if err := validateCampaignPolicy(policy); err != nil {
		return CampaignPolicy{}, err
	}
	return policy, nil
}

func validateCampaignPolicy(policy CampaignPolicy) error {
	if len(policy.AllowedChannels) == 0 {
		return errors.New("campaign.allowedChannels cannot be empty")
	}
	if policy.MaxDays < 1 {
		return errors.New("campaign.maxDays must be positive")
	}
	if policy.MaxRecipients < 1 {
		return errors.New("campaign.maxRecipients must be positive")
	}
	if policy.MaxAIContentCount < 1 {
		return errors.New("campaign.maxAIContentCount must be positive")
	}
	return nil
}
