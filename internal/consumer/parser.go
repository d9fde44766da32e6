package consumer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/domain"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/stream"
)

// CameraEventParser implements MessageParser for camera pipeline stream
// entries. Producers are not consistent about key casing, so every field is
// resolved through an alias list (camelCase first, snake_case fallback).
type CameraEventParser struct{}

// NewCameraEventParser creates a new camera event parser
func NewCameraEventParser() *CameraEventParser {
	return &CameraEventParser{}
}

// Parse parses a stream message into a camera event and its detections.
// Detections that fail validation are dropped; an event that fails
// validation makes the whole message malformed.
func (p *CameraEventParser) Parse(msg stream.Message) (*domain.CameraEvent, []*domain.CameraDetection, error) {
	if len(msg.Values) == 0 {
		return nil, nil, fmt.Errorf("empty message data")
	}

	cameraID := intAlias(msg.Values, "cameraID", "camera_id")
	if cameraID == nil {
		return nil, nil, fmt.Errorf("missing camera_id")
	}

	eventTime, err := parseEventTime(stringAlias(msg.Values, "eventDate", "event_time"))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid event_time: %w", err)
	}

	detections := p.parseDetections(msg.Values, *cameraID, eventTime)

	event := &domain.CameraEvent{
		CameraID:         *cameraID,
		EventTime:        eventTime,
		FrameNumber:      intAlias(msg.Values, "frameNumber", "frame_number"),
		HasDetection:     len(detections) > 0,
		DetectionCount:   len(detections),
		ProcessingTimeMS: intAlias(msg.Values, "processingTimeMs", "processing_time_ms"),
		StreamLagMS:      intAlias(msg.Values, "streamLagMs", "stream_lag_ms"),
	}

	if err := event.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid camera event: %w", err)
	}

	return event, detections, nil
}

// parseDetections extracts detections from the detectedObjects JSON array,
// falling back to flat top-level fields for the legacy single-detection
// format. Detections that fail validation are dropped.
func (p *CameraEventParser) parseDetections(values map[string]string, cameraID int, eventTime time.Time) []*domain.CameraDetection {
	raw := stringAlias(values, "detectedObjects", "detected_objects")

	var objects []map[string]any
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &objects); err != nil {
			objects = nil
		}
	}

	// Legacy format: detection fields inlined into the event entry
	if objects == nil && boolAlias(values, "hasDetection", "has_detection") {
		inline := make(map[string]any, len(values))
		for k, v := range values {
			inline[k] = v
		}
		objects = []map[string]any{inline}
	}

	var detections []*domain.CameraDetection
	for _, obj := range objects {
		d := p.buildDetection(obj, cameraID, eventTime)
		if d == nil {
			continue
		}
		if err := d.Validate(); err != nil {
			continue
		}
		detections = append(detections, d)
	}

	return detections
}

// buildDetection maps one detection object onto the domain model; class and
// confidence are mandatory, everything else optional
func (p *CameraEventParser) buildDetection(obj map[string]any, cameraID int, eventTime time.Time) *domain.CameraDetection {
	classID := objInt(obj, "className", "class_name", "classID", "class_id")
	confidence := objInt(obj, "confidence")
	if classID == nil || confidence == nil {
		return nil
	}

	return &domain.CameraDetection{
		EventTime:  eventTime,
		CameraID:   cameraID,
		ClassID:    *classID,
		Confidence: *confidence,
		PhotoURL:   objString(obj, "photoUrl", "photo_url"),
		CoordX:     objInt(obj, "coordinateX", "coordinate_x", "coord_x"),
		CoordY:     objInt(obj, "coordinateY", "coordinate_y", "coord_y"),
		RegionIDs:  objRegionIDs(obj, "regionID", "region_id", "region_ids"),
		BBoxWidth:  objInt(obj, "bboxWidth", "bbox_width"),
		BBoxHeight: objInt(obj, "bboxHeight", "bbox_height"),
		ObjectID:   objString(obj, "objectID", "object_id"),
		TrackID:    objInt(obj, "trackID", "track_id"),
	}
}

// parseEventTime accepts RFC 3339 plus the two timestamp layouts the camera
// pipeline has historically produced
func parseEventTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing event time")
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format %q", value)
}

func stringAlias(values map[string]string, keys ...string) string {
	for _, key := range keys {
		if v, ok := values[key]; ok && v != "" {
			return v
		}
	}
	return ""
}

func intAlias(values map[string]string, keys ...string) *int {
	s := stringAlias(values, keys...)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func boolAlias(values map[string]string, keys ...string) bool {
	switch strings.ToLower(stringAlias(values, keys...)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// objString extracts an optional string field from a decoded JSON object
func objString(obj map[string]any, keys ...string) *string {
	for _, key := range keys {
		if v, ok := obj[key]; ok && v != nil {
			s := fmt.Sprint(v)
			if s != "" {
				return &s
			}
		}
	}
	return nil
}

// objInt extracts an optional integer field, coercing JSON numbers and
// numeric strings
func objInt(obj map[string]any, keys ...string) *int {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			i := int(n)
			return &i
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return &i
			}
		}
	}
	return nil
}

// objRegionIDs extracts region membership as a JSON array, a single number,
// or a comma-separated string
func objRegionIDs(obj map[string]any, keys ...string) []int {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case []any:
			var ids []int
			for _, item := range val {
				switch n := item.(type) {
				case float64:
					ids = append(ids, int(n))
				case string:
					if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
						ids = append(ids, i)
					}
				}
			}
			return ids
		case float64:
			return []int{int(val)}
		case string:
			return parseRegionIDString(val)
		}
	}
	return nil
}

func parseRegionIDString(s string) []int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// A JSON array serialized into the string field
	if strings.HasPrefix(s, "[") {
		var arr []int
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return arr
		}
		return nil
	}

	var ids []int
	for _, part := range strings.Split(s, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil
		}
		ids = append(ids, i)
	}
	return ids
}
