package secrets_test

import (
	"context"
	"errors"
	"testing"

	"github.com/straye-as/fms-api/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapGetter map[string]string

func (m mapGetter) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return "", secrets.ErrSecretNotFound
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		source      secrets.Source
		environment string
		want        secrets.Source
	}{
		{secrets.SourceAuto, "development", secrets.SourceEnvironment},
		{secrets.SourceAuto, "", secrets.SourceEnvironment},
		{secrets.SourceAuto, "production", secrets.SourceVault},
		{secrets.SourceAuto, "staging", secrets.SourceVault},
		{secrets.SourceEnvironment, "production", secrets.SourceEnvironment},
		{secrets.SourceVault, "development", secrets.SourceVault},
	}

	for _, tt := range tests {
		t.Run(string(tt.source)+"/"+tt.environment, func(t *testing.T) {
			assert.Equal(t, tt.want, secrets.ResolveSource(tt.source, tt.environment))
		})
	}
}

func TestProvider_EnvironmentSource(t *testing.T) {
	t.Setenv("FMS_TEST_SECRET", "s3cret")
	p, err := secrets.NewProvider(&secrets.ProviderConfig{Source: secrets.SourceAuto, Environment: "development"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, secrets.SourceEnvironment, p.Source())

	value, err := p.GetSecret(context.Background(), "FMS_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)

	_, err = p.GetSecret(context.Background(), "FMS_TEST_MISSING")
	assert.True(t, errors.Is(err, secrets.ErrSecretNotFound))
}

func TestProvider_VaultWithEnvironmentOverride(t *testing.T) {
	p := secrets.NewProviderWithGetter(secrets.SourceVault, mapGetter{"jwt-secret": "from-vault"}, zap.NewNop())
	ctx := context.Background()

	value, err := p.GetSecretOrEnv(ctx, "jwt-secret", "FMS_TEST_JWT")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", value)

	t.Setenv("FMS_TEST_JWT", "from-env")
	value, err = p.GetSecretOrEnv(ctx, "jwt-secret", "FMS_TEST_JWT")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	_, err = p.GetSecretOrEnv(ctx, "missing", "FMS_TEST_UNSET")
	assert.True(t, errors.Is(err, secrets.ErrSecretNotFound))
}

func TestNewProvider_VaultNeedsName(t *testing.T) {
	_, err := secrets.NewProvider(&secrets.ProviderConfig{Source: secrets.SourceVault}, zap.NewNop())
	assert.Error(t, err)
}
