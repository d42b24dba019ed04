package provider

import (
	"github.com/dingzu/dramagic/config"
	"github.com/dingzu/dramagic/models"
)

// comfly 凭证档位
const (
	TierDefault  = "default"
	TierPremium  = "premium"
	TierOriginal = "original"
)

// Credentials 按 (provider, tier) 选上游密钥。凭证是只读配置，可并发读。
type Credentials struct {
	comfly config.ComflyConfig
	toapis config.ToapisConfig
	arkKey string
}

func NewCredentials(cfg *config.Config) *Credentials {
	return &Credentials{comfly: cfg.Comfly, toapis: cfg.Toapis, arkKey: cfg.ArkKey}
}

// Resolve 返回实际生效的档位和密钥。
// 规则：不认识的档位回落到该 provider 的默认档；认识的档位但没配密钥
// 是硬性配置错误，报出缺的是哪个凭证。
func (c *Credentials) Resolve(provider, tier string) (string, string, error) {
	switch provider {
	case ProviderComfly:
		switch tier {
		case TierPremium:
			if c.comfly.PremiumKey == "" {
				return "", "", &models.ConfigurationError{Credential: "COMFLY_API_KEY_PREMIUM"}
			}
			return TierPremium, c.comfly.PremiumKey, nil
		case TierOriginal:
			if c.comfly.OriginalKey == "" {
				return "", "", &models.ConfigurationError{Credential: "COMFLY_API_KEY_ORIGINAL"}
			}
			return TierOriginal, c.comfly.OriginalKey, nil
		default:
			// default 档，未知档位名也落到这里
			if c.comfly.Key == "" {
				return "", "", &models.ConfigurationError{Credential: "COMFLY_API_KEY"}
			}
			return TierDefault, c.comfly.Key, nil
		}
	case ProviderToapis:
		if c.toapis.Key == "" {
			return "", "", &models.ConfigurationError{Credential: "TOAPIS_API_KEY"}
		}
		return TierDefault, c.toapis.Key, nil
	case ProviderArk:
		if c.arkKey == "" {
			return "", "", &models.ConfigurationError{Credential: "ARK_API_KEY"}
		}
		return TierDefault, c.arkKey, nil
	}
	return "", "", models.NewValidationError("provider", "unknown provider "+provider)
}
