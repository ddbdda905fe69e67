package ledger

import (
	"encoding/json"
	"time"
)

// =============================================================================
// TIME POINT - Instant with calendar-day comparison helpers
// =============================================================================

// TimePoint is the instant a document was created. Internally it is a
// native time.Time; the {seconds, nanoseconds} pair exists only at the
// storage boundary, where backups keep the legacy JSON shape.
type TimePoint struct {
	t time.Time
}

func At(t time.Time) TimePoint { return TimePoint{t: t} }

func Now() TimePoint { return TimePoint{t: time.Now()} }

func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (tp TimePoint) Time() time.Time { return tp.t }
func (tp TimePoint) IsZero() bool    { return tp.t.IsZero() }

// Comparison
func (tp TimePoint) Before(other TimePoint) bool { return tp.t.Before(other.t) }
func (tp TimePoint) After(other TimePoint) bool  { return tp.t.After(other.t) }
func (tp TimePoint) Equal(other TimePoint) bool  { return tp.t.Equal(other.t) }

// StartOfDay truncates to midnight in the local calendar.
func (tp TimePoint) StartOfDay() TimePoint {
	y, m, d := tp.t.Date()
	return TimePoint{t: time.Date(y, m, d, 0, 0, 0, 0, tp.t.Location())}
}

// SameDay reports whether both instants fall on the same calendar day.
func (tp TimePoint) SameDay(other TimePoint) bool {
	ay, am, ad := tp.t.Date()
	by, bm, bd := other.t.Date()
	return ay == by && am == bm && ad == bd
}

func (tp TimePoint) AddDays(n int) TimePoint {
	return TimePoint{t: tp.t.AddDate(0, 0, n)}
}

func (tp TimePoint) String() string {
	return tp.t.Format(time.RFC3339)
}

// =============================================================================
// STORAGE BOUNDARY - {seconds, nanoseconds} pair
// =============================================================================

type boundaryTimestamp struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int64 `json:"nanoseconds"`
}

// MarshalJSON serializes to the plain numeric pair used by the persisted
// snapshot format.
func (tp TimePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(boundaryTimestamp{
		Seconds:     tp.t.Unix(),
		Nanoseconds: int64(tp.t.Nanosecond()),
	})
}

func (tp *TimePoint) UnmarshalJSON(data []byte) error {
	var b boundaryTimestamp
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	tp.t = time.Unix(b.Seconds, b.Nanoseconds)
	return nil
}
