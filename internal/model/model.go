package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Setting{},
	&CaptureRecord{},
}

// Setting is one key/value application setting. Deleting a setting is a soft
// delete; CanDelete guards settings the application relies on.
type Setting struct {
	gorm.Model
	Key       string `json:"key" gorm:"size:127;uniqueIndex;not null"`
	Value     string `json:"value"`
	CanDelete bool   `json:"canDelete"`
}

func (*Setting) TableName() string {
	return "settings"
}

// CaptureRecord is the catalog entry written each time a capture is opened
type CaptureRecord struct {
	gorm.Model
	Path        string         `json:"path" gorm:"size:1024;uniqueIndex;not null"`
	FileName    string         `json:"fileName" gorm:"size:255;index"`
	Version     uint32         `json:"version"`
	TickRate    uint32         `json:"tickRate"`
	NumVars     uint32         `json:"numVars"`
	RecordLen   uint32         `json:"recordLen"`
	RecordCount int64          `json:"recordCount"`
	StartTime   float64        `json:"startTime"`
	EndTime     float64        `json:"endTime"`
	LapCount    uint32         `json:"lapCount"`
	TrackName   string         `json:"trackName" gorm:"size:255"`
	Channels    datatypes.JSON `json:"channels"`
	OpenedAt    time.Time      `json:"openedAt" gorm:"index"`
}

func (*CaptureRecord) TableName() string {
	return "capture_records"
}

// ChannelInfo is one element of CaptureRecord.Channels
type ChannelInfo struct {
	Name  string `json:"name"`
	Unit  string `json:"unit"`
	Type  uint32 `json:"type"`
	Count uint32 `json:"count"`
}
