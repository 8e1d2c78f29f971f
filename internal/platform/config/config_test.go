package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_TYPE", "")
	t.Setenv("ENV", "dev")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DBSQL, cfg.DBType)
	assert.Equal(t, "sqlite", cfg.SQLDriver)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.False(t, cfg.ExpirySweepEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"mongo without uri", map[string]string{"DB_TYPE": "mongo", "MONGO_URI": "", "MONGODB_URI": ""}, "MONGO_URI"},
		{"unknown backend", map[string]string{"DB_TYPE": "cassandra"}, "unknown DB_TYPE"},
		{"prod without secret", map[string]string{"ENV": "prod", "JWT_SECRET": ""}, "JWT_SECRET"},
		{"sweep with zero interval", map[string]string{"EXPIRY_SWEEP_ENABLED": "true", "EXPIRY_SWEEP_INTERVAL_SEC": "0"}, "EXPIRY_SWEEP_INTERVAL_SEC"},
		{"sweep with negative interval", map[string]string{"EXPIRY_SWEEP_ENABLED": "true", "EXPIRY_SWEEP_INTERVAL_SEC": "-5"}, "EXPIRY_SWEEP_INTERVAL_SEC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_TYPE", "")
			t.Setenv("ENV", "dev")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "42")
	t.Setenv("X_BAD_INT", "forty")
	t.Setenv("X_BOOL", "true")
	t.Setenv("X_LIST", " kafka-1:9092 , ,kafka-2:9092 ")
	t.Setenv("X_EMPTY_LIST", " , ")

	assert.Equal(t, 42, getEnvAsInt("X_INT", 1))
	assert.Equal(t, 1, getEnvAsInt("X_BAD_INT", 1))
	assert.True(t, getEnvAsBool("X_BOOL", false))
	assert.True(t, getEnvAsBool("X_MISSING", true))
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, getEnvAsSlice("X_LIST", nil))
	assert.Equal(t, []string{"d"}, getEnvAsSlice("X_EMPTY_LIST", []string{"d"}))
}
