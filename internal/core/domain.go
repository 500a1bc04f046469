package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	TypeTimer      TrackerType = "TIMER"
	TypeCounter    TrackerType = "COUNTER"
	TypeAmount     TrackerType = "AMOUNT"
	TypeOccurrence TrackerType = "OCCURRENCE"
	TypeCustom     TrackerType = "CUSTOM"
)

const (
	StatusActive   TrackerStatus = "ACTIVE"
	StatusInactive TrackerStatus = "INACTIVE"
	StatusArchived TrackerStatus = "ARCHIVED"
)

type (
	TrackerType   string
	TrackerStatus string

	// Statistics is the denormalized rollup embedded in a tracker. It is a
	// derived projection of the entry set: always rebuildable, updated in the
	// same transaction as the entry write that changed it.
	Statistics struct {
		TotalEntries int64
		TotalTime    int64 // seconds, TIMER only
		TotalValue   float64
		TotalCustom  string // opaque, preserved verbatim
	}

	Tracker struct {
		ID          int64
		UserID      string
		Name        string
		Description string
		Type        TrackerType
		Status      TrackerStatus
		Tags        []string
		Color       string
		Icon        string
		Statistics  Statistics
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Entry struct {
		ID        int64
		TrackerID int64
		Date      time.Time
		StartTime *time.Time
		EndTime   *time.Time
		Duration  int64 // seconds, derived when both times are set
		Value     *float64
		Note      string
		Tags      []string
		Version   int64
		CreatedAt time.Time
	}
)

var (
	ErrEmptyName      = errors.New("empty name")
	ErrNameTooLong    = errors.New("name too long (max 100 characters)")
	ErrNoteTooLong    = errors.New("note too long (max 500 characters)")
	ErrInvalidType    = errors.New("invalid tracker type")
	ErrInvalidStatus  = errors.New("invalid tracker status")
	ErrInvalidColor   = errors.New("invalid color (expected #RRGGBB)")
	ErrInvalidValue   = errors.New("invalid value")
	ErrMissingStart   = errors.New("timer entry requires a start time")
	ErrEndBeforeStart = errors.New("end time before start time")
	ErrTypeImmutable  = errors.New("tracker type cannot be changed")
	ErrEmptyUser      = errors.New("empty user id")
	ErrMissingTracker = errors.New("entry requires a tracker id")
)

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func (t TrackerType) Valid() bool {
	switch t {
	case TypeTimer, TypeCounter, TypeAmount, TypeOccurrence, TypeCustom:
		return true
	}
	return false
}

func (s TrackerStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusArchived:
		return true
	}
	return false
}

func (t Tracker) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if len(strings.TrimSpace(t.Name)) == 0 {
		return ErrEmptyName
	}
	if len(t.Name) > 100 {
		return ErrNameTooLong
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if t.Color != "" && !colorRe.MatchString(t.Color) {
		return ErrInvalidColor
	}
	return nil
}

// Validate checks the type-independent entry constraints plus the
// constraints implied by the owning tracker's type.
func (e Entry) Validate(trackerType TrackerType) error {
	if e.TrackerID <= 0 {
		return ErrMissingTracker
	}
	if len(e.Note) > 500 {
		return ErrNoteTooLong
	}
	switch trackerType {
	case TypeTimer:
		if e.StartTime == nil {
			return ErrMissingStart
		}
		if e.EndTime != nil && e.EndTime.Before(*e.StartTime) {
			return ErrEndBeforeStart
		}
	case TypeCounter, TypeAmount, TypeOccurrence, TypeCustom:
		// Value is optional for all of these; no further shape constraints.
	default:
		return ErrInvalidType
	}
	return nil
}

// DurationSeconds returns the whole-second span between the entry's start and
// end times, or 0 when either is missing. A zero span marks an in-progress
// timer session.
func (e Entry) DurationSeconds() int64 {
	if e.StartTime == nil || e.EndTime == nil {
		return 0
	}
	d := int64(e.EndTime.Sub(*e.StartTime).Seconds())
	if d < 0 {
		return 0
	}
	return d
}

// Completed reports whether a timer entry represents a finished session:
// both timestamps present and distinct.
func (e Entry) Completed() bool {
	return e.StartTime != nil && e.EndTime != nil && !e.EndTime.Equal(*e.StartTime)
}

// JoinTags flattens a tag list into the comma-separated form stored in the
// database. Empty tags are dropped.
func JoinTags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return strings.Join(out, ",")
}

// SplitTags is the inverse of JoinTags.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
