package domain

import (
	"fmt"
	"time"
)

// ClockSkewAllowance is how far into the future an event_time may lie before
// it is rejected as invalid. Camera clocks drift a little; anything beyond
// this is a producer bug.
const ClockSkewAllowance = 5 * time.Second

// CameraEvent is one camera heartbeat/frame event stored in camera_events_raw.
// Optional columns are pointer fields so that NULL survives the round trip.
type CameraEvent struct {
	CameraID         int
	EventTime        time.Time
	FrameNumber      *int
	HasDetection     bool
	DetectionCount   int
	ProcessingTimeMS *int
	StreamLagMS      *int
}

// Validate enforces the table constraints client-side so that bad rows are
// rejected before they reach a COPY, plus the consistency rules the database
// does not express (detection_count vs has_detection, future timestamps).
func (e *CameraEvent) Validate() error {
	if e.CameraID <= 0 {
		return fmt.Errorf("camera_id must be positive, got %d", e.CameraID)
	}
	if e.EventTime.IsZero() {
		return fmt.Errorf("event_time is required")
	}
	if e.EventTime.After(time.Now().Add(ClockSkewAllowance)) {
		return fmt.Errorf("event_time cannot be in the future: %s", e.EventTime.Format(time.RFC3339))
	}
	if e.FrameNumber != nil && *e.FrameNumber < 0 {
		return fmt.Errorf("frame_number cannot be negative, got %d", *e.FrameNumber)
	}
	if e.DetectionCount < 0 {
		return fmt.Errorf("detection_count cannot be negative, got %d", e.DetectionCount)
	}
	if e.HasDetection && e.DetectionCount == 0 {
		return fmt.Errorf("detection_count must be > 0 when has_detection is true")
	}
	if !e.HasDetection && e.DetectionCount > 0 {
		return fmt.Errorf("detection_count must be 0 when has_detection is false, got %d", e.DetectionCount)
	}
	if e.ProcessingTimeMS != nil && *e.ProcessingTimeMS <= 0 {
		return fmt.Errorf("processing_time_ms must be positive, got %d", *e.ProcessingTimeMS)
	}
	if e.StreamLagMS != nil && *e.StreamLagMS < 0 {
		return fmt.Errorf("stream_lag_ms cannot be negative, got %d", *e.StreamLagMS)
	}
	return nil
}
