package execworker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaflow/qaflow/pkg/browser"
	"github.com/qaflow/qaflow/pkg/models"
)

func TestBuildFinishResultMarksPassed(t *testing.T) {
	fr, err := buildFinishResult(&browser.Result{
		Passed:         true,
		ScreenshotURLs: []string{"s3://shot1"},
		VideoURL:       "s3://vid",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPassed, fr.Status)
	assert.Equal(t, "Execution passed", *fr.ResultSummary)
	assert.Nil(t, fr.ErrorMessage)
	require.NotNil(t, fr.VideoURL)
	assert.Equal(t, "s3://vid", *fr.VideoURL)
}

func TestBuildFinishResultMarksFailedWithErrorMessage(t *testing.T) {
	fr, err := buildFinishResult(&browser.Result{
		Passed:       false,
		ErrorMessage: "selector not found",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, fr.Status)
	assert.Contains(t, *fr.ResultSummary, "selector not found")
	require.NotNil(t, fr.ErrorMessage)
	assert.Equal(t, "selector not found", *fr.ErrorMessage)
}

func TestBuildFinishResultOmitsEmptyVideoURL(t *testing.T) {
	fr, err := buildFinishResult(&browser.Result{Passed: true})
	require.NoError(t, err)
	assert.Nil(t, fr.VideoURL)
}

func TestNewServiceDefaultsHeartbeatInterval(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, nil, 0)
	assert.Equal(t, int64(15_000_000_000), svc.heartbeat.Nanoseconds())
}
