package fixtures

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaflow/qaflow/pkg/config"
	"github.com/qaflow/qaflow/pkg/models"
)

func newTestRateLimit() *config.RateLimitConfig {
	return &config.RateLimitConfig{GlobalRatePerSecond: 1000, Burst: 1000}
}

func TestSatisfyNoopConditionsLeaveVarsUntouched(t *testing.T) {
	c := NewClient(&config.FixtureConfig{Entities: map[string]config.FixtureEntityConfig{}}, newTestRateLimit())
	vars := map[string]string{}

	for _, cond := range []models.DataCondition{
		models.DataConditionNone, models.DataConditionStateful, models.DataConditionCrossEntity,
	} {
		require.NoError(t, c.Satisfy(context.Background(), "USER", cond, vars))
	}
	assert.Empty(t, vars)
}

func TestSatisfyRecordMustExistReadsIDField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc123"}`))
	}))
	defer srv.Close()

	cfg := &config.FixtureConfig{Entities: map[string]config.FixtureEntityConfig{
		"USER": {FixtureAPI: srv.URL},
	}}
	c := NewClient(cfg, newTestRateLimit())
	vars := map[string]string{}

	err := c.Satisfy(context.Background(), "user", models.DataConditionRecordMustExist, vars)
	require.NoError(t, err)
	assert.Equal(t, "abc123", vars["VALID_USER_ID"])
}

func TestSatisfyRecordMustExistFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &config.FixtureConfig{Entities: map[string]config.FixtureEntityConfig{
		"USER": {FixtureAPI: srv.URL},
	}}
	c := NewClient(cfg, newTestRateLimit())

	err := c.Satisfy(context.Background(), "USER", models.DataConditionRecordMustExist, map[string]string{})
	assert.Error(t, err)
}

func TestSatisfyRecordMustNotExistRetriesUntil404(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := &config.FixtureConfig{Entities: map[string]config.FixtureEntityConfig{
		"USER": {FixtureAPI: srv.URL, CheckAPI: srv.URL},
	}}
	c := NewClient(cfg, newTestRateLimit())
	vars := map[string]string{}

	err := c.Satisfy(context.Background(), "USER", models.DataConditionRecordMustNotExist, vars)
	require.NoError(t, err)
	assert.Len(t, vars["NON_EXISTING_USER_ID"], 24)
	assert.Equal(t, 3, attempts)
}

func TestSatisfyMissingEntityConfigFails(t *testing.T) {
	cfg := &config.FixtureConfig{Entities: map[string]config.FixtureEntityConfig{}}
	c := NewClient(cfg, newTestRateLimit())

	err := c.Satisfy(context.Background(), "UNKNOWN", models.DataConditionRecordMustExist, map[string]string{})
	assert.Error(t, err)
}
