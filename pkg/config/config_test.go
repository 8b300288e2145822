package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/go-drift/present/pkg/presentation"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644))
	return dir
}

func TestResolve_Defaults(t *testing.T) {
	r, err := Resolve(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, r.Version)
	assert.Equal(t, "info", r.LogLevel)
	assert.Equal(t, presentation.TimersPauseWhenInactive, r.TimerPolicy)
	assert.Equal(t, presentation.DefaultPopupLayer, r.PopupLayer)
	assert.Empty(t, r.Descriptors)
}

func TestResolve_File(t *testing.T) {
	dir := writeConfig(t, `
version: "1.2"
logging:
  level: Debug
timers:
  policy: run-while-presented
popupLayer: 0
descriptors:
  Compose:
    resource: " views/compose "
    options: [modal, popup]
  Inbox: {}
`)
	r, err := Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, "v1.2.0", r.Version)
	assert.Equal(t, "debug", r.LogLevel)
	assert.Equal(t, presentation.TimersRunWhilePresented, r.TimerPolicy)
	assert.Equal(t, 0, r.PopupLayer)
	assert.Equal(t, map[string]ResolvedDescriptor{
		"Compose": {Resource: "views/compose", Options: presentation.Modal | presentation.Popup},
		"Inbox":   {},
	}, r.Descriptors)
}

func TestResolve_CollectsEveryProblem(t *testing.T) {
	dir := writeConfig(t, `
version: v2.0.0
logging:
  level: loud
timers:
  policy: sometimes
popupLayer: -1
descriptors:
  A:
    options: [sticky]
  B:
    options: [child]
`)
	_, err := Resolve(dir)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 6)
	assert.ErrorContains(t, err, "unsupported major version v2")
	assert.ErrorContains(t, err, "logging.level")
	assert.ErrorContains(t, err, "timers.policy")
	assert.ErrorContains(t, err, "popupLayer")
	assert.ErrorContains(t, err, `descriptors.A: unknown option "sticky"`)
	assert.ErrorContains(t, err, "descriptors.B: child")
}

func TestResolve_InvalidVersion(t *testing.T) {
	_, err := (&Config{Version: "one"}).Resolve()
	assert.ErrorContains(t, err, "not a semantic version")
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	dir := writeConfig(t, "colour: blue\n")
	_, err := LoadOptional(dir)
	assert.ErrorContains(t, err, "failed to parse present.yaml")
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := LoadOptional(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolved_Apply(t *testing.T) {
	reg := presentation.NewRegistry()
	newFn := func(presentation.Context, any) (presentation.Controller, error) { return struct{}{}, nil }
	reg.RegisterNamed("Compose", newFn, presentation.WithOptions(presentation.Exclusive))

	r := &Resolved{Descriptors: map[string]ResolvedDescriptor{
		"Compose": {Resource: "views/compose", Options: presentation.Modal},
	}}
	require.NoError(t, r.Apply(reg))

	d, ok := reg.Lookup("Compose")
	require.True(t, ok)
	assert.Equal(t, "views/compose", d.Resource)
	assert.Equal(t, presentation.Modal, d.Options)

	r.Descriptors["Missing"] = ResolvedDescriptor{}
	assert.ErrorContains(t, r.Apply(reg), `"Missing": not registered`)
}

func TestResolved_PresenterOptionsAndLogger(t *testing.T) {
	r, err := (&Config{}).Resolve()
	require.NoError(t, err)
	assert.Len(t, r.PresenterOptions(), 2)

	log, err := r.Logger()
	require.NoError(t, err)
	assert.True(t, log.Enabled())
	assert.False(t, log.V(1).Enabled())
}

func TestParseTimerPolicy(t *testing.T) {
	p, err := ParseTimerPolicy(" Pause-When-Inactive ")
	require.NoError(t, err)
	assert.Equal(t, presentation.TimersPauseWhenInactive, p)

	_, err = ParseTimerPolicy("never")
	assert.ErrorContains(t, err, `unknown policy "never"`)
}
