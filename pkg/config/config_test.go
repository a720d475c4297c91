package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "MONGO_DATABASE", "TX_TIMEOUT", "WS_ALLOWED_ORIGINS", "WS_SEND_BUFFER", "ENV"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "studyhub", cfg.MongoDatabase)
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
	assert.Nil(t, cfg.WSAllowedOrigins)
	assert.Equal(t, 64, cfg.WSSendBuffer)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("ENV", "Production")
	t.Setenv("TX_TIMEOUT", "750ms")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example.com, ,localhost:3000")
	t.Setenv("WS_SEND_BUFFER", "-4")

	cfg := Load()
	assert.Equal(t, "3000", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 750*time.Millisecond, cfg.TxTimeout)
	assert.Equal(t, []string{"https://a.example.com", "localhost:3000"}, cfg.WSAllowedOrigins)
	assert.Equal(t, 64, cfg.WSSendBuffer)
}
