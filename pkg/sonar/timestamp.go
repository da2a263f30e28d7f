package sonar

import "time"

// Timestamp is a UNIX timestamp in UTC with nanosecond precision.
// Nanos is always normalized into [0, 1e9).
type Timestamp struct {
	Seconds uint64
	Nanos   uint32
}

// NewTimestamp normalizes overflowing nanoseconds into seconds.
func NewTimestamp(seconds uint64, nanos uint32) Timestamp {
	seconds += uint64(nanos) / 1_000_000_000
	nanos %= 1_000_000_000
	return Timestamp{Seconds: seconds, Nanos: nanos}
}

func TimestampFromSeconds(seconds uint64) Timestamp {
	return NewTimestamp(seconds, 0)
}

func TimestampFromMillis(millis uint64) Timestamp {
	return NewTimestamp(millis/1000, uint32(millis%1000)*1_000_000)
}

func TimestampFromTime(t time.Time) Timestamp {
	return NewTimestamp(uint64(t.Unix()), uint32(t.Nanosecond()))
}

// Now returns the current time as a Timestamp.
func Now() Timestamp { return TimestampFromTime(time.Now()) }

func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t.Seconds), int64(t.Nanos)).UTC()
}

func (t Timestamp) Duration() time.Duration {
	return time.Duration(t.Seconds)*time.Second + time.Duration(t.Nanos)
}

// Elapsed reports how long ago the timestamp was.
func (t Timestamp) Elapsed() time.Duration {
	return Now().Duration() - t.Duration()
}

func (t Timestamp) Before(other Timestamp) bool {
	if t.Seconds != other.Seconds {
		return t.Seconds < other.Seconds
	}
	return t.Nanos < other.Nanos
}
