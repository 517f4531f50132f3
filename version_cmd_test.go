package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_PrintsVersion(t *testing.T) {
	oldVersion := version
	version = "test-v1.2.3"
	t.Cleanup(func() { version = oldVersion })

	cmd := newRootCmd()
	cmd.SetArgs([]string{"version"})

	out := captureStdout(t, func() {
		require.NoError(t, cmd.Execute())
	})

	assert.Contains(t, out, "test-v1.2.3")
}
