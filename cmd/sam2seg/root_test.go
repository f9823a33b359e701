package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getcharzp/sam2-tools/internal/app"
	"github.com/getcharzp/sam2-tools/prompt"
)

func TestOptions_ModePriority(t *testing.T) {
	base := options{input: "a.png", numMasks: 3, model: 1, box: "1,2,3,4"}

	o := base
	o.points, o.auto = true, true
	req, err := o.request()
	require.NoError(t, err)
	assert.Equal(t, app.ModePoints, req.Mode)
	assert.Nil(t, req.Box)

	o = base
	o.auto = true
	req, err = o.request()
	require.NoError(t, err)
	assert.Equal(t, app.ModeAuto, req.Mode)

	req, err = base.request()
	require.NoError(t, err)
	assert.Equal(t, app.ModeBox, req.Mode)
	assert.Equal(t, prompt.Box{X1: 1, Y1: 2, X2: 3, Y2: 4}, *req.Box)
}

func TestRootCmd_MissingInputHasNoSideEffects(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config-file", cfgPath})

	err := cmd.Execute()
	var inErr *app.InputError
	require.ErrorAs(t, err, &inErr)
	assert.NoFileExists(t, cfgPath)
	assert.Empty(t, stdout.String())
}

func TestRootCmd_ConfigPrintsPath(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", "--config-file", cfgPath})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, cfgPath+"\n", stdout.String())
	assert.FileExists(t, cfgPath)
}

func TestRootCmd_BadBox(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-i", "a.png", "-s", "1,2", "--config-file", filepath.Join(t.TempDir(), "c.yaml")})

	var inErr *app.InputError
	assert.ErrorAs(t, cmd.Execute(), &inErr)
}

func TestRootCmd_NonexistentInputHasNoSideEffects(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"-i", filepath.Join(dir, "nope.png"), "--config-file", cfgPath})

	err := cmd.Execute()
	var inErr *app.InputError
	require.ErrorAs(t, err, &inErr)
	assert.Equal(t, "input", inErr.Field)
	assert.NoFileExists(t, cfgPath)
	assert.Empty(t, stdout.String())
}

func TestRootCmd_ReportsCreatedConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	execute := func() string {
		var stderr bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&stderr)
		cmd.SetArgs([]string{"--config", "--config-file", cfgPath})
		require.NoError(t, cmd.Execute())
		return stderr.String()
	}

	assert.Contains(t, execute(), "Config file is ready at: "+cfgPath)
	assert.NotContains(t, execute(), "Config file is ready at:")
}
