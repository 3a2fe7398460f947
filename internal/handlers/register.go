package handlers

import (
	"context"
	"errors"

	"github.com/OCAP2/ibt/internal/dispatcher"
)

// Command names understood by the dispatcher.
const (
	CmdReadTelemetryDir = "read_telemetry_dir"
	CmdGetTelemetry     = "get_telemetry"
	CmdGetRecord        = "get_record"
	CmdGetNextData      = "get_next_data"
	CmdRewind           = "rewind"
	CmdGetAllData       = "get_all_data"
	CmdCloseTelemetry   = "close_telemetry"
	CmdExportJSON       = "export_json"
	CmdExportInflux     = "export_influx"
	CmdGetSetting       = "get_setting"
	CmdSetSetting       = "set_setting"
	CmdDeleteSetting    = "delete_setting"
	CmdListSettings     = "list_settings"
)

var errMissingHandle = errors.New("capture handle is required")

// Register wires every command onto d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdReadTelemetryDir, func(e dispatcher.Event) (any, error) {
		return s.ListDir(e.Arg(0))
	}, dispatcher.Logged())

	d.Register(CmdGetTelemetry, func(e dispatcher.Event) (any, error) {
		return s.Open(e.Arg(0))
	}, dispatcher.Logged())

	d.Register(CmdGetRecord, func(e dispatcher.Event) (any, error) {
		if e.Arg(0) == "" {
			return nil, errMissingHandle
		}
		index, err := parseIndex(e.Arg(1))
		if err != nil {
			return nil, err
		}
		return s.Record(e.Arg(0), index)
	})

	d.Register(CmdGetNextData, func(e dispatcher.Event) (any, error) {
		if e.Arg(0) == "" {
			return nil, errMissingHandle
		}
		return s.Next(e.Arg(0))
	})

	d.Register(CmdRewind, func(e dispatcher.Event) (any, error) {
		if e.Arg(0) == "" {
			return nil, errMissingHandle
		}
		return nil, s.Rewind(e.Arg(0))
	})

	d.Register(CmdGetAllData, func(e dispatcher.Event) (any, error) {
		if e.Arg(0) == "" {
			return nil, errMissingHandle
		}
		return s.All(e.Arg(0))
	}, dispatcher.Logged())

	d.Register(CmdCloseTelemetry, func(e dispatcher.Event) (any, error) {
		if e.Arg(0) == "" {
			return nil, errMissingHandle
		}
		return nil, s.Close(e.Arg(0))
	}, dispatcher.Logged())

	d.Register(CmdExportJSON, func(e dispatcher.Event) (any, error) {
		if e.Arg(0) == "" {
			return nil, errMissingHandle
		}
		return s.ExportJSON(e.Arg(0))
	}, dispatcher.Logged())

	// influx exports run in the background; failures are logged by the dispatcher
	d.Register(CmdExportInflux, func(e dispatcher.Event) (any, error) {
		if e.Arg(0) == "" {
			return nil, errMissingHandle
		}
		return s.ExportInflux(context.Background(), e.Arg(0))
	}, dispatcher.Buffered(4), dispatcher.Logged())

	d.Register(CmdGetSetting, func(e dispatcher.Event) (any, error) {
		store, err := s.settingsStore()
		if err != nil {
			return nil, err
		}
		return store.Get(e.Arg(0))
	})

	d.Register(CmdSetSetting, func(e dispatcher.Event) (any, error) {
		store, err := s.settingsStore()
		if err != nil {
			return nil, err
		}
		return nil, store.Set(e.Arg(0), e.Arg(1))
	}, dispatcher.Logged())

	d.Register(CmdDeleteSetting, func(e dispatcher.Event) (any, error) {
		store, err := s.settingsStore()
		if err != nil {
			return nil, err
		}
		return nil, store.Delete(e.Arg(0))
	}, dispatcher.Logged())

	d.Register(CmdListSettings, func(e dispatcher.Event) (any, error) {
		store, err := s.settingsStore()
		if err != nil {
			return nil, err
		}
		return store.List()
	})
}
