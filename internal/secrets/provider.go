// Package secrets resolves credentials from Azure Key Vault, with environment
// variables taking precedence so a single value can be overridden per deployment.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// ErrSecretNotFound is returned when no source holds a value for the name
var ErrSecretNotFound = errors.New("secret not found")

// Source selects where secrets come from
type Source string

const (
	SourceEnvironment Source = "environment"
	SourceVault       Source = "vault"
	// SourceAuto picks the environment in development and the vault elsewhere
	SourceAuto Source = "auto"
)

// Getter reads one named secret
type Getter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Provider reads secrets from the configured source
type Provider struct {
	source Source
	vault  Getter
	logger *zap.Logger
}

// ProviderConfig configures NewProvider
type ProviderConfig struct {
	Source       Source
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NewProvider resolves the source and connects to the vault when it is needed
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)
	if source != SourceVault {
		return NewProviderWithGetter(source, nil, logger), nil
	}
	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name required for the %s secret source", source)
	}
	vault, err := NewVaultClient(&VaultConfig{
		VaultName:    cfg.VaultName,
		CacheEnabled: cfg.CacheEnabled,
		CacheTTL:     cfg.CacheTTL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault client: %w", err)
	}
	logger.Info("secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment))
	return NewProviderWithGetter(source, vault, logger), nil
}

// NewProviderWithGetter builds a provider over an existing vault reader
func NewProviderWithGetter(source Source, vault Getter, logger *zap.Logger) *Provider {
	return &Provider{source: source, vault: vault, logger: logger}
}

// ResolveSource turns SourceAuto into a concrete source for environment
func ResolveSource(source Source, environment string) Source {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "", "development", "local", "test":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// GetSecret reads name from the configured source. In environment mode name is
// the variable name.
func (p *Provider) GetSecret(ctx context.Context, name string) (string, error) {
	switch p.source {
	case SourceEnvironment:
		if value := os.Getenv(name); value != "" {
			return value, nil
		}
		return "", fmt.Errorf("%w: environment variable %s", ErrSecretNotFound, name)
	case SourceVault:
		if p.vault == nil {
			return "", fmt.Errorf("vault client not initialized")
		}
		return p.vault.GetSecret(ctx, name)
	default:
		return "", fmt.Errorf("unknown secret source %q", p.source)
	}
}

// GetSecretOrEnv returns envName when it is set and otherwise reads secretName
// from the configured source
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if value := os.Getenv(envName); value != "" {
		p.logger.Debug("secret overridden by environment", zap.String("env_name", envName))
		return value, nil
	}
	return p.GetSecret(ctx, secretName)
}

// Source returns the resolved source
func (p *Provider) Source() Source {
	return p.source
}
