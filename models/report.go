package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ReportStatus is the administrative lifecycle state of a report
type ReportStatus string

const (
	StatusNew        ReportStatus = "New"
	StatusInProgress ReportStatus = "InProgress"
	StatusResolved   ReportStatus = "Resolved"
)

// Label returns the human readable status used in marker popups
func (s ReportStatus) Label() string {
	switch s {
	case StatusNew:
		return "Báo cáo mới"
	case StatusInProgress:
		return "Đang xử lý"
	case StatusResolved:
		return "Đã xử lý"
	default:
		return string(s)
	}
}

// MediaKind tells whether a report carries a photo or a clip
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// IssueType is the closed category set returned by the classifier.
// "No issue" is never a category, it is expressed by AIAnalysis.IssuePresent.
type IssueType string

const (
	IssueLittering  IssueType = "littering"
	IssueFlooding   IssueType = "flooding"
	IssueLandslide  IssueType = "landslide"
	IssueVegetation IssueType = "vegetation"
	IssueOther      IssueType = "other"
)

var issueTypes = map[IssueType]bool{
	IssueLittering:  true,
	IssueFlooding:   true,
	IssueLandslide:  true,
	IssueVegetation: true,
	IssueOther:      true,
}

// Valid reports whether t belongs to the category set
func (t IssueType) Valid() bool {
	return issueTypes[t]
}

// Label returns the Vietnamese category name shown in marker popups
func (t IssueType) Label() string {
	switch t {
	case IssueLittering:
		return "Xả rác không đúng nơi quy định"
	case IssueFlooding:
		return "Ngập lụt"
	case IssueLandslide:
		return "Sạt lở đất"
	case IssueVegetation:
		return "Cần chăm sóc cây xanh"
	case IssueOther:
		return "Khác"
	}
	return string(t)
}

// IssueTypes returns the category set in a stable order
func IssueTypes() []IssueType {
	return []IssueType{IssueLittering, IssueFlooding, IssueLandslide, IssueVegetation, IssueOther}
}

// Priority is the classifier's urgency estimate
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// GeoPosition is a WGS84 coordinate pair
type GeoPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that both coordinates are finite and within range
func (p GeoPosition) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) || math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) {
		return &ValidationError{Field: "position", Reason: "coordinates must be finite"}
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return &ValidationError{Field: "latitude", Reason: fmt.Sprintf("%v is outside [-90, 90]", p.Latitude)}
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return &ValidationError{Field: "longitude", Reason: fmt.Sprintf("%v is outside [-180, 180]", p.Longitude)}
	}
	return nil
}

// AIAnalysis is the classifier judgment attached to an accepted report
type AIAnalysis struct {
	IssueType    IssueType `json:"issueType"`
	Description  string    `json:"description"`
	Priority     Priority  `json:"priority"`
	Remedy       string    `json:"remedy"`
	IssuePresent bool      `json:"issuePresent"`
}

// ReportRecord is one citizen submission that passed validation
type ReportRecord struct {
	ID        string       `json:"id"`
	MediaURL  string       `json:"mediaUrl"`
	MediaKind MediaKind    `json:"mediaKind"`
	Position  GeoPosition  `json:"position"`
	UserNote  string       `json:"userNote,omitempty"`
	Analysis  AIAnalysis   `json:"analysis"`
	Status    ReportStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

var errNoIssue = errors.New("report records require an analysis with issuePresent=true")

// NewReportRecord builds a fresh record in status New.
// It refuses analyses that did not detect an issue.
func NewReportRecord(id, mediaURL string, kind MediaKind, pos GeoPosition, note string, analysis AIAnalysis, now time.Time) (*ReportRecord, error) {
	if !analysis.IssuePresent {
		return nil, errNoIssue
	}
	if id == "" {
		return nil, errors.New("report id is required")
	}
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	return &ReportRecord{
		ID:        id,
		MediaURL:  mediaURL,
		MediaKind: kind,
		Position:  pos,
		UserNote:  note,
		Analysis:  analysis,
		Status:    StatusNew,
		CreatedAt: now.UTC(),
	}, nil
}

// ViewportState is the camera of one map view
type ViewportState struct {
	Center GeoPosition `json:"center"`
	Zoom   int         `json:"zoom"`
}

// ReportStats are the counters shown on the home view
type ReportStats struct {
	Total      int `json:"total"`
	New        int `json:"new"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}
