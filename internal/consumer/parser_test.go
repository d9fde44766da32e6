package consumer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/stream"
)

func TestCameraEventParser_Parse_FullMessage(t *testing.T) {
	parser := NewCameraEventParser()

	msg := stream.Message{
		ID: "1-0",
		Values: map[string]string{
			"cameraID":           "3",
			"eventDate":          "2025-11-06T10:30:00Z",
			"frame_number":       "12345",
			"processing_time_ms": "150",
			"stream_lag_ms":      "50",
			"detectedObjects": `[
				{"className": 5, "confidence": 95, "photoUrl": "https://example.com/p.jpg",
				 "coordinateX": 320, "coordinateY": 240, "regionID": [1, 3],
				 "bboxWidth": 150, "bboxHeight": 200,
				 "objectID": "550e8400-e29b-41d4-a716-446655440000", "trackID": 42},
				{"className": 7, "confidence": 60}
			]`,
		},
	}

	event, detections, err := parser.Parse(msg)
	require.NoError(t, err)

	assert.Equal(t, 3, event.CameraID)
	assert.Equal(t, time.Date(2025, 11, 6, 10, 30, 0, 0, time.UTC), event.EventTime.UTC())
	require.NotNil(t, event.FrameNumber)
	assert.Equal(t, 12345, *event.FrameNumber)
	assert.True(t, event.HasDetection)
	assert.Equal(t, 2, event.DetectionCount)
	require.NotNil(t, event.ProcessingTimeMS)
	assert.Equal(t, 150, *event.ProcessingTimeMS)
	require.NotNil(t, event.StreamLagMS)
	assert.Equal(t, 50, *event.StreamLagMS)

	require.Len(t, detections, 2)

	first := detections[0]
	assert.Equal(t, 5, first.ClassID)
	assert.Equal(t, 95, first.Confidence)
	require.NotNil(t, first.PhotoURL)
	assert.Equal(t, "https://example.com/p.jpg", *first.PhotoURL)
	require.NotNil(t, first.CoordX)
	assert.Equal(t, 320, *first.CoordX)
	assert.Equal(t, []int{1, 3}, first.RegionIDs)
	require.NotNil(t, first.BBoxWidth)
	assert.Equal(t, 150, *first.BBoxWidth)
	require.NotNil(t, first.ObjectID)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", *first.ObjectID)
	require.NotNil(t, first.TrackID)
	assert.Equal(t, 42, *first.TrackID)

	second := detections[1]
	assert.Equal(t, 7, second.ClassID)
	assert.Equal(t, 60, second.Confidence)
	assert.Nil(t, second.PhotoURL)
	assert.Nil(t, second.RegionIDs)
}

func TestCameraEventParser_Parse_SnakeCaseAliases(t *testing.T) {
	parser := NewCameraEventParser()

	msg := stream.Message{
		ID: "2-0",
		Values: map[string]string{
			"camera_id":  "1",
			"event_time": "2025-11-06 10:30:00",
		},
	}

	event, detections, err := parser.Parse(msg)
	require.NoError(t, err)

	assert.Equal(t, 1, event.CameraID)
	assert.False(t, event.HasDetection)
	assert.Equal(t, 0, event.DetectionCount)
	assert.Empty(t, detections)
}

func TestCameraEventParser_Parse_LegacyInlineDetection(t *testing.T) {
	parser := NewCameraEventParser()

	msg := stream.Message{
		ID: "3-0",
		Values: map[string]string{
			"camera_id":     "2",
			"event_time":    "2025-11-06T10:30:00Z",
			"has_detection": "true",
			"class_id":      "4",
			"confidence":    "88",
			"coord_x":       "10",
			"coord_y":       "20",
		},
	}

	event, detections, err := parser.Parse(msg)
	require.NoError(t, err)

	assert.True(t, event.HasDetection)
	assert.Equal(t, 1, event.DetectionCount)
	require.Len(t, detections, 1)
	assert.Equal(t, 4, detections[0].ClassID)
	assert.Equal(t, 88, detections[0].Confidence)
}

func TestCameraEventParser_Parse_InvalidDetectionDropped(t *testing.T) {
	parser := NewCameraEventParser()

	// Second object has an out-of-range confidence and must be dropped
	msg := stream.Message{
		ID: "4-0",
		Values: map[string]string{
			"camera_id":  "1",
			"event_time": "2025-11-06T10:30:00Z",
			"detectedObjects": `[
				{"className": 5, "confidence": 95},
				{"className": 6, "confidence": 101}
			]`,
		},
	}

	event, detections, err := parser.Parse(msg)
	require.NoError(t, err)

	assert.Equal(t, 1, event.DetectionCount)
	require.Len(t, detections, 1)
	assert.Equal(t, 5, detections[0].ClassID)
}

func TestCameraEventParser_Parse_Errors(t *testing.T) {
	parser := NewCameraEventParser()

	tests := []struct {
		name   string
		values map[string]string
	}{
		{
			name:   "empty message",
			values: map[string]string{},
		},
		{
			name:   "missing camera id",
			values: map[string]string{"event_time": "2025-11-06T10:30:00Z"},
		},
		{
			name:   "missing event time",
			values: map[string]string{"camera_id": "1"},
		},
		{
			name:   "unparseable event time",
			values: map[string]string{"camera_id": "1", "event_time": "yesterday"},
		},
		{
			name:   "zero camera id",
			values: map[string]string{"camera_id": "0", "event_time": "2025-11-06T10:30:00Z"},
		},
		{
			name:   "future event time",
			values: map[string]string{"camera_id": "1", "event_time": "2100-01-01T00:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parser.Parse(stream.Message{ID: "x-0", Values: tt.values})
			assert.Error(t, err)
		})
	}
}

func TestParseEventTime_Formats(t *testing.T) {
	tests := []struct {
		value string
		want  time.Time
	}{
		{"2025-11-06T10:30:00Z", time.Date(2025, 11, 6, 10, 30, 0, 0, time.UTC)},
		{"2025-11-06T10:30:00+03:00", time.Date(2025, 11, 6, 7, 30, 0, 0, time.UTC)},
		{"2025-11-06T10:30:00", time.Date(2025, 11, 6, 10, 30, 0, 0, time.UTC)},
		{"2025-11-06 10:30:00", time.Date(2025, 11, 6, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := parseEventTime(tt.value)
		require.NoError(t, err, tt.value)
		assert.True(t, got.UTC().Equal(tt.want), "value %s: got %s", tt.value, got)
	}
}

func TestParseRegionIDString(t *testing.T) {
	assert.Equal(t, []int{1, 3}, parseRegionIDString("[1,3]"))
	assert.Equal(t, []int{2, 5}, parseRegionIDString("2, 5"))
	assert.Equal(t, []int{7}, parseRegionIDString("7"))
	assert.Nil(t, parseRegionIDString(""))
	assert.Nil(t, parseRegionIDString("not-a-number"))
}
