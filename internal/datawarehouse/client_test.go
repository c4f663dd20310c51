package datawarehouse

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/straye-as/fms-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewClient_SkipsWithoutConfig(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name string
		cfg  *config.DataWarehouseConfig
	}{
		{"nil config", nil},
		{"disabled", &config.DataWarehouseConfig{Enabled: false, URL: "dw:1433/fx", User: "u", Password: "p"}},
		{"missing url", &config.DataWarehouseConfig{Enabled: true, User: "u", Password: "p"}},
		{"missing user", &config.DataWarehouseConfig{Enabled: true, URL: "dw:1433/fx", Password: "p"}},
		{"missing password", &config.DataWarehouseConfig{Enabled: true, URL: "dw:1433/fx", User: "u"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg, logger)
			assert.NoError(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		host     string
		database string
	}{
		{"host port and database", "dw.internal:1444/finance", "dw.internal:1444", "finance"},
		{"default port", "dw.internal/finance", "dw.internal:1433", "finance"},
		{"no database", "dw.internal:1433", "dw.internal:1433", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := buildConnectionString(&config.DataWarehouseConfig{URL: tt.url, User: "fx_reader", Password: "p@ss/word"})
			require.NoError(t, err)

			u, err := url.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, "sqlserver", u.Scheme)
			assert.Equal(t, tt.host, u.Host)
			assert.Equal(t, "fx_reader", u.User.Username())
			password, _ := u.User.Password()
			assert.Equal(t, "p@ss/word", password)
			assert.Equal(t, tt.database, u.Query().Get("database"))
			assert.Equal(t, "true", u.Query().Get("encrypt"))
		})
	}
}

func TestValidTableName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"fx_daily_rates", true},
		{"dbo.fx_daily_rates", true},
		{"", false},
		{"dbo.", false},
		{"rates; DROP TABLE x", false},
		{"[dbo].[rates]", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validTableName(tt.name))
		})
	}
}

func TestNilClient(t *testing.T) {
	var client *Client

	assert.False(t, client.IsEnabled())
	assert.NoError(t, client.Close())
	assert.Equal(t, "disabled", client.HealthCheck(context.Background()).Status)

	_, err := client.DailyRates(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}
