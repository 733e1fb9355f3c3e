package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerboseControlsDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetVerbose(false)
	})

	Debugf("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	assert.True(t, IsVerbose())
	Debugf("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
	assert.Contains(t, buf.String(), "level=DEBUG")
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Infof("info %s", "a")
	Warnf("warn %s", "b")
	Errorf("error %s", "c")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, `msg="error c"`)
}

func TestWithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	With("request_id", "abc", "status", 200).Info("request")

	out := buf.String()
	assert.Contains(t, out, "msg=request")
	assert.Contains(t, out, "request_id=abc")
	assert.Contains(t, out, "status=200")
}
