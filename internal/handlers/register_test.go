package handlers

import (
	"testing"

	"github.com/OCAP2/ibt/internal/dispatcher"
	"github.com/OCAP2/ibt/internal/logging"
	"github.com/OCAP2/ibt/internal/model"
	"github.com/OCAP2/ibt/internal/settings"
	"github.com/OCAP2/ibt/pkg/ibt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, svc *Service) *dispatcher.Dispatcher {
	t.Helper()
	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	svc.Register(d)
	t.Cleanup(d.Close)
	return d
}

func dispatch(t *testing.T, d *dispatcher.Dispatcher, cmd string, args ...string) (any, error) {
	t.Helper()
	return d.Dispatch(dispatcher.Event{Command: cmd, Args: args})
}

func TestRegister_Commands(t *testing.T) {
	env := newTestEnv(t)
	d := newTestDispatcher(t, env.svc)

	for _, cmd := range []string{
		CmdReadTelemetryDir, CmdGetTelemetry, CmdGetRecord, CmdGetNextData, CmdRewind,
		CmdGetAllData, CmdCloseTelemetry, CmdExportJSON, CmdExportInflux,
		CmdGetSetting, CmdSetSetting, CmdDeleteSetting, CmdListSettings,
	} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
}

func TestRegister_CaptureFlow(t *testing.T) {
	env := newTestEnv(t)
	d := newTestDispatcher(t, env.svc)
	env.write(t, "flow.ibt", 2)

	res, err := dispatch(t, d, CmdReadTelemetryDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"flow.ibt"}, res)

	res, err = dispatch(t, d, CmdGetTelemetry, "flow.ibt")
	require.NoError(t, err)
	opened := res.(Opened)

	res, err = dispatch(t, d, CmdGetRecord, opened.Handle, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", res.(ibt.Sample)["SessionTick"].Data)

	res, err = dispatch(t, d, CmdGetNextData, opened.Handle)
	require.NoError(t, err)
	assert.Equal(t, "0", res.(ibt.Sample)["SessionTick"].Data)

	res, err = dispatch(t, d, CmdGetAllData, opened.Handle)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	_, err = dispatch(t, d, CmdCloseTelemetry, opened.Handle)
	require.NoError(t, err)
	_, err = dispatch(t, d, CmdGetNextData, opened.Handle)
	assert.ErrorIs(t, err, ErrCaptureNotFound)
}

func TestRegister_ArgumentErrors(t *testing.T) {
	env := newTestEnv(t)
	d := newTestDispatcher(t, env.svc)

	for _, cmd := range []string{CmdGetRecord, CmdGetNextData, CmdGetAllData, CmdCloseTelemetry, CmdExportJSON, CmdRewind} {
		_, err := dispatch(t, d, cmd)
		assert.ErrorIs(t, err, errMissingHandle, cmd)
	}

	_, err := dispatch(t, d, CmdGetRecord, "h", "minus-one")
	assert.ErrorContains(t, err, "invalid record index")
}

func TestRegister_Settings(t *testing.T) {
	env := newTestEnv(t)
	d := newTestDispatcher(t, env.svc)

	_, err := dispatch(t, d, CmdSetSetting, "units", "metric")
	require.NoError(t, err)

	res, err := dispatch(t, d, CmdGetSetting, "units")
	require.NoError(t, err)
	assert.Equal(t, "metric", res)

	res, err = dispatch(t, d, CmdListSettings)
	require.NoError(t, err)
	assert.Len(t, res.([]model.Setting), 1)

	_, err = dispatch(t, d, CmdDeleteSetting, "units")
	require.NoError(t, err)
	_, err = dispatch(t, d, CmdGetSetting, "units")
	assert.ErrorIs(t, err, settings.ErrSettingNotFound)
}

func TestRegister_SettingsNotConfigured(t *testing.T) {
	svc := NewService(Dependencies{Logger: zerolog.Nop()})
	d := newTestDispatcher(t, svc)

	_, err := dispatch(t, d, CmdListSettings)
	assert.Error(t, err)
}

func TestRegister_ExportInfluxIsQueued(t *testing.T) {
	env := newTestEnv(t)
	d := newTestDispatcher(t, env.svc)

	res, err := dispatch(t, d, CmdExportInflux, "some-handle")
	require.NoError(t, err)
	assert.Equal(t, "queued", res)
}
