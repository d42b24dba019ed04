package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingzu/dramagic/config"
	"github.com/dingzu/dramagic/models"
)

func testCredentials() *Credentials {
	return NewCredentials(&config.Config{
		Comfly: config.ComflyConfig{
			Key:        "key-default",
			PremiumKey: "key-premium",
			// original 档故意不配
		},
		Toapis: config.ToapisConfig{Key: "key-toapis"},
	})
}

func TestResolveComflyTiers(t *testing.T) {
	creds := testCredentials()

	tier, key, err := creds.Resolve(ProviderComfly, "")
	require.NoError(t, err)
	assert.Equal(t, TierDefault, tier)
	assert.Equal(t, "key-default", key)

	tier, key, err = creds.Resolve(ProviderComfly, TierPremium)
	require.NoError(t, err)
	assert.Equal(t, TierPremium, tier)
	assert.Equal(t, "key-premium", key)
}

func TestResolveUnknownTierFallsBackToDefault(t *testing.T) {
	creds := testCredentials()

	tier, key, err := creds.Resolve(ProviderComfly, "ultra-plus")
	require.NoError(t, err)
	assert.Equal(t, TierDefault, tier)
	assert.Equal(t, "key-default", key)
}

func TestResolveMissingSecretIsConfigurationError(t *testing.T) {
	creds := testCredentials()

	_, _, err := creds.Resolve(ProviderComfly, TierOriginal)
	require.Error(t, err)

	// 缺密钥是部署配置问题，不能伪装成上游错误
	var ce *models.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "COMFLY_API_KEY_ORIGINAL", ce.Credential)

	var ue *models.UpstreamError
	assert.False(t, errors.As(err, &ue))
}

func TestResolveArkMissingKey(t *testing.T) {
	creds := testCredentials()

	_, _, err := creds.Resolve(ProviderArk, "")
	var ce *models.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "ARK_API_KEY", ce.Credential)
}

func TestResolveUnknownProvider(t *testing.T) {
	creds := testCredentials()

	_, _, err := creds.Resolve("runway", "")
	var ve *models.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestSourceKeyRoundTrip(t *testing.T) {
	assert.Equal(t, "comfly:premium", SourceKey(ProviderComfly, TierPremium))
	assert.Equal(t, "comfly", SourceKey(ProviderComfly, TierDefault))
	assert.Equal(t, "toapis", SourceKey(ProviderToapis, TierDefault))

	p, tier := ParseSource("comfly:original")
	assert.Equal(t, ProviderComfly, p)
	assert.Equal(t, TierOriginal, tier)

	p, tier = ParseSource("toapis")
	assert.Equal(t, ProviderToapis, p)
	assert.Equal(t, TierDefault, tier)
}
