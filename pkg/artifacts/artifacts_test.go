package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreenshotKeyIsDeterministic(t *testing.T) {
	assert.Equal(t, "executions/exec-1/screenshot-2.png", ScreenshotKey("exec-1", 2))
}

func TestVideoKeyIsDeterministic(t *testing.T) {
	assert.Equal(t, "executions/exec-1/video.webm", VideoKey("exec-1"))
}

func TestURLFallsBackToBareKeyWithoutBase(t *testing.T) {
	s := &Store{bucket: "qaflow", base: ""}
	assert.Equal(t, "executions/exec-1/video.webm", s.URL("executions/exec-1/video.webm"))
}

func TestURLJoinsPublicBaseWithoutDoubleSlash(t *testing.T) {
	s := &Store{bucket: "qaflow", base: "https://cdn.example.com/artifacts/"}
	assert.Equal(t, "https://cdn.example.com/artifacts/executions/exec-1/video.webm",
		s.URL("executions/exec-1/video.webm"))
}
