package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxBBoxDimension caps bounding box width/height; anything larger than this
// is not a plausible frame dimension.
const MaxBBoxDimension = 10000

// CameraDetection is one detected object within a camera event, stored in
// camera_detections_raw. Detections are correlated with events by
// (camera_id, event_time) convention only; there is no foreign key, so
// high-rate ingest never has to wait on referential checks.
type CameraDetection struct {
	EventTime  time.Time
	CameraID   int
	ClassID    int
	Confidence int
	PhotoURL   *string
	CoordX     *int
	CoordY     *int
	RegionIDs  []int
	BBoxWidth  *int
	BBoxHeight *int
	ObjectID   *string
	TrackID    *int
}

// Validate enforces the table constraints client-side plus format rules the
// database does not express (photo_url scheme, object_id as UUID).
func (d *CameraDetection) Validate() error {
	if d.CameraID <= 0 {
		return fmt.Errorf("camera_id must be positive, got %d", d.CameraID)
	}
	if d.EventTime.IsZero() {
		return fmt.Errorf("event_time is required")
	}
	if d.EventTime.After(time.Now().Add(ClockSkewAllowance)) {
		return fmt.Errorf("event_time cannot be in the future: %s", d.EventTime.Format(time.RFC3339))
	}
	if d.ClassID <= 0 {
		return fmt.Errorf("class_id must be positive, got %d", d.ClassID)
	}
	if d.Confidence < 0 || d.Confidence > 100 {
		return fmt.Errorf("confidence must be in [0,100], got %d", d.Confidence)
	}
	if d.PhotoURL != nil && strings.TrimSpace(*d.PhotoURL) != "" {
		if !hasAllowedScheme(*d.PhotoURL) {
			return fmt.Errorf("photo_url must start with http://, https:// or s3://")
		}
	}
	if d.CoordX != nil && *d.CoordX < 0 {
		return fmt.Errorf("coord_x cannot be negative, got %d", *d.CoordX)
	}
	if d.CoordY != nil && *d.CoordY < 0 {
		return fmt.Errorf("coord_y cannot be negative, got %d", *d.CoordY)
	}
	if d.RegionIDs != nil {
		if len(d.RegionIDs) == 0 {
			return fmt.Errorf("region_ids cannot be empty, use nil instead")
		}
		for _, id := range d.RegionIDs {
			if id <= 0 {
				return fmt.Errorf("region_ids must all be positive, got %d", id)
			}
		}
	}
	if err := validateBBoxDimension("bbox_width", d.BBoxWidth); err != nil {
		return err
	}
	if err := validateBBoxDimension("bbox_height", d.BBoxHeight); err != nil {
		return err
	}
	if d.ObjectID != nil && strings.TrimSpace(*d.ObjectID) != "" {
		if _, err := uuid.Parse(*d.ObjectID); err != nil {
			return fmt.Errorf("object_id must be a valid UUID: %w", err)
		}
	}
	if d.TrackID != nil && *d.TrackID <= 0 {
		return fmt.Errorf("track_id must be positive, got %d", *d.TrackID)
	}
	return nil
}

func validateBBoxDimension(name string, v *int) error {
	if v == nil {
		return nil
	}
	if *v <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, *v)
	}
	if *v > MaxBBoxDimension {
		return fmt.Errorf("%s exceeds maximum of %d pixels, got %d", name, MaxBBoxDimension, *v)
	}
	return nil
}

func hasAllowedScheme(url string) bool {
	return strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "s3://")
}
