// Package fixtures implements the data orchestrator (C4, §4.6): it
// satisfies a TestCase's data_condition precondition against a
// project-configured fixture/check HTTP API, without invoking AI.
package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/qaflow/qaflow/pkg/config"
	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/qerrors"
)

// Client talks to the fixture/check APIs configured per entity type. One
// Client is shared across every execution dispatched by a worker process;
// the rate limiter bounds its total outbound call rate (the
// "global_rate_limit" configuration key, §6).
type Client struct {
	cfg        *config.FixtureConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a Client against cfg, rate-limited per rl.
func NewClient(cfg *config.FixtureConfig, rl *config.RateLimitConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rl.GlobalRatePerSecond), rl.Burst),
	}
}

// Satisfy applies §4.6's table for dataCondition against entityType,
// writing the variable it produces (VALID_{ENTITY}_ID or
// NON_EXISTING_{ENTITY}_ID) into vars. A no-op condition leaves vars
// untouched. Every failure except an interrupted rate-limiter wait (returned
// as is) is classified DATA_PREPARATION (§7): it is fatal for this
// execution only.
func (c *Client) Satisfy(ctx context.Context, entityType string, cond models.DataCondition, vars map[string]string) error {
	switch cond {
	case models.DataConditionNone, models.DataConditionStateful, models.DataConditionCrossEntity:
		return nil
	case models.DataConditionRecordMustExist:
		id, err := c.createRecord(ctx, entityType)
		if err != nil {
			return err
		}
		vars[fmt.Sprintf("VALID_%s_ID", strings.ToUpper(entityType))] = id
		return nil
	case models.DataConditionRecordMustNotExist:
		id, err := c.findNonExistingID(ctx, entityType)
		if err != nil {
			return err
		}
		vars[fmt.Sprintf("NON_EXISTING_%s_ID", strings.ToUpper(entityType))] = id
		return nil
	default:
		return qerrors.Classify(qerrors.ClassificationDataPreparation,
			fmt.Errorf("fixtures: unrecognized data condition %q", cond))
	}
}

func (c *Client) entityConfig(entityType string) (config.FixtureEntityConfig, error) {
	ec, ok := c.cfg.Entities[strings.ToUpper(entityType)]
	if !ok {
		return config.FixtureEntityConfig{}, qerrors.Classify(qerrors.ClassificationDataPreparation,
			fmt.Errorf("fixtures: no fixture configuration for entity %q", entityType))
	}
	if ec.IDField == "" {
		ec.IDField = "id"
	}
	if ec.CheckAPI == "" {
		ec.CheckAPI = ec.FixtureAPI
	}
	return ec, nil
}

// createRecord POSTs to the entity's fixture API and reads the created id
// from the configured idField (§4.6, RECORD_MUST_EXIST).
func (c *Client) createRecord(ctx context.Context, entityType string) (string, error) {
	ec, err := c.entityConfig(entityType)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.FixtureAPI, nil)
	if err != nil {
		return "", qerrors.Classify(qerrors.ClassificationDataPreparation, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", qerrors.Classify(qerrors.ClassificationDataPreparation,
			fmt.Errorf("fixtures: create %s: %w", entityType, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", qerrors.Classify(qerrors.ClassificationDataPreparation,
			fmt.Errorf("fixtures: fixture API for %s returned HTTP %d", entityType, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", qerrors.Classify(qerrors.ClassificationDataPreparation, err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", qerrors.Classify(qerrors.ClassificationDataPreparation,
			fmt.Errorf("fixtures: decode fixture response for %s: %w", entityType, err))
	}

	raw, ok := parsed[ec.IDField]
	if !ok {
		return "", qerrors.Classify(qerrors.ClassificationDataPreparation,
			fmt.Errorf("fixtures: fixture response for %s missing field %q", entityType, ec.IDField))
	}
	id, ok := raw.(string)
	if !ok {
		return "", qerrors.Classify(qerrors.ClassificationDataPreparation,
			fmt.Errorf("fixtures: fixture response field %q for %s is not a string", ec.IDField, entityType))
	}
	return id, nil
}

const maxCheckAttempts = 5

// findNonExistingID generates 24-hex candidates and GETs the check API
// until one 404s, retrying up to maxCheckAttempts times (§4.6,
// RECORD_MUST_NOT_EXIST).
func (c *Client) findNonExistingID(ctx context.Context, entityType string) (string, error) {
	ec, err := c.entityConfig(entityType)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxCheckAttempts; attempt++ {
		candidate, err := randomHexID()
		if err != nil {
			return "", qerrors.Classify(qerrors.ClassificationDataPreparation, err)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		url := strings.TrimSuffix(ec.CheckAPI, "/") + "/" + candidate
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", qerrors.Classify(qerrors.ClassificationDataPreparation, err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", qerrors.Classify(qerrors.ClassificationDataPreparation,
				fmt.Errorf("fixtures: check %s: %w", entityType, err))
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return candidate, nil
		}
	}

	return "", qerrors.Classify(qerrors.ClassificationDataPreparation,
		fmt.Errorf("fixtures: exceeded %d retries finding a non-existing %s id", maxCheckAttempts, entityType))
}

func randomHexID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
