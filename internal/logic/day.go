package logic

import (
	"fmt"
	"path/filepath"
	"time"
)

// FrameExt is the extension of captured frames.
const FrameExt = "jpeg"

// Day is one calendar day of capture.
type Day struct {
	Date     time.Time // midnight, local to the clock that started the day
	EndOfDay time.Time // 23:59:59 on Date
	Seq      int       // next frame number; starts at 1
	Counts   DayCounts
}

// NewDay starts a day cycle for the calendar day containing now.
func NewDay(now time.Time) *Day {
	y, m, d := now.Date()
	return &Day{
		Date:     time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		EndOfDay: EndOfDay(now),
		Seq:      1,
	}
}

// NextDay returns the cycle that follows prev. It is the day containing now
// once the date has moved on, otherwise the day after prev: a day that
// ends a moment before midnight must not start a second cycle for the
// same date.
func NextDay(prev *Day, now time.Time) *Day {
	next := NewDay(now)
	if next.Date.After(prev.Date) {
		return next
	}
	return NewDay(prev.Date.AddDate(0, 0, 1))
}

// EndOfDay returns 23:59:59 on the calendar day containing t.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// Done reports whether the day has elapsed at now.
func (d *Day) Done(now time.Time) bool {
	return !now.Before(d.EndOfDay)
}

// Captured records a successful capture and advances the sequence.
func (d *Day) Captured() {
	d.Seq++
	d.Counts.Captured++
}

// Frames returns the number of frames captured so far.
func (d *Day) Frames() int {
	return d.Seq - 1
}

// Stamp returns the YYYYMMDD form of the day used in output names.
func (d *Day) Stamp() string {
	return DayStamp(d.Date)
}

// DayStamp formats t as YYYYMMDD.
func DayStamp(t time.Time) string {
	return t.Format("20060102")
}

// FrameName returns the file name of frame n. Names are contiguous from 1
// because the renderer expects a gapless numeric sequence.
func FrameName(n int) string {
	return fmt.Sprintf("img_%d.%s", n, FrameExt)
}

// FramePattern returns the printf-style input pattern for frames in dir.
func FramePattern(dir string) string {
	return filepath.Join(dir, "img_%d."+FrameExt)
}

// FrameGlob returns the glob matching every frame in dir.
func FrameGlob(dir string) string {
	return filepath.Join(dir, "*."+FrameExt)
}
