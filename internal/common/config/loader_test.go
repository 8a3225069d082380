package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
app:
  name: financing-workers
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: financing
    user: ${TEST_DB_USER}
  redis:
    address: localhost:6379
store:
  backend: postgres
  cache_ttl: 30
  cache_collections: [admin_profiles]
finance:
  contract_rates:
    murabaha: 0.18
workers:
  process-investment:
    enabled: true
  distribute-profit:
    enabled: false
    timeout: 10000
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_DefaultsAndExpansion(t *testing.T) {
	t.Setenv("TEST_DB_USER", "workflow")

	cfg, err := LoadFromFile(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "workflow", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)

	assert.Equal(t, 0.18, cfg.Finance.ContractRates.MurabahaMarkup)
	assert.Equal(t, 0.12, cfg.Finance.ContractRates.IjaraLease)
	assert.Equal(t, "Africa/Lagos", cfg.Finance.BusinessHours.Timezone)
	assert.Equal(t, 6, cfg.Finance.BusinessHours.StartHour)
	assert.Equal(t, 22, cfg.Finance.BusinessHours.EndHour)

	assert.Equal(t, 5000, cfg.Store.Timeout)
	assert.Equal(t, []string{"admin_profiles"}, cfg.Store.CacheFor)
	assert.Equal(t, 250, cfg.Store.CacheTimeout)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)

	inv := GetWorkerConfig(cfg, "process-investment")
	assert.True(t, inv.Enabled)
	assert.Equal(t, 5, inv.MaxJobsActive)
	assert.Equal(t, 30000, inv.Timeout)
	assert.Equal(t, 3, inv.MaxRetries)

	assert.False(t, IsWorkerEnabled(cfg, "distribute-profit"))
	assert.True(t, IsWorkerEnabled(cfg, "unknown-worker"))
	assert.Equal(t, 10*time.Second, GetDuration(GetWorkerConfig(cfg, "distribute-profit").Timeout))
}

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing broker",
			yaml:    "database:\n  redis:\n    address: localhost:6379\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name:    "unknown store backend",
			yaml:    "camunda:\n  broker_address: x\nstore:\n  backend: mongo\ndatabase:\n  redis:\n    address: r\n",
			wantErr: "store.backend must be postgres or redis",
		},
		{
			name:    "audit without elasticsearch",
			yaml:    "camunda:\n  broker_address: x\nstore:\n  backend: redis\ndatabase:\n  redis:\n    address: r\naudit:\n  enabled: true\n",
			wantErr: "elasticsearch",
		},
		{
			name:    "bad timezone",
			yaml:    "camunda:\n  broker_address: x\nstore:\n  backend: redis\ndatabase:\n  redis:\n    address: r\nfinance:\n  business_hours:\n    timezone: Mars/Olympus\n",
			wantErr: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=require", p.GetDSN())
}

func TestElasticsearchConfig_Addresses(t *testing.T) {
	assert.Equal(t, []string{"http://es:9200"}, ElasticsearchConfig{URL: "http://es:9200"}.GetAddresses())
	assert.Equal(t, "http://a:9200", ElasticsearchConfig{Addresses: []string{"http://a:9200"}}.GetURL())
	assert.Nil(t, ElasticsearchConfig{}.GetAddresses())
}
