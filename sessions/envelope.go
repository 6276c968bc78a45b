package sessions

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the persisted form of a record: {"data": {...}, "timestamp": <epoch
// seconds>, "version": N}. The timestamp is the time of the last write.
type Envelope struct {
	Data      *Record `json:"data"`
	Timestamp float64 `json:"timestamp"`
	Version   int64   `json:"version"`
}

// Encode wraps record for storage, stamping written as the write time.
func Encode(record *Record, version int64, written time.Time) ([]byte, error) {
	b, err := json.MarshalIndent(Envelope{
		Data:      record,
		Timestamp: float64(written.UnixNano()) / float64(time.Second),
		Version:   version,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("[sessions.Encode] %w", err)
	}
	return b, nil
}

// Decode parses a stored envelope. Anything that is not a JSON object carrying a data
// object is an error; callers treat that like a missing session.
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("[sessions.Decode] %w", err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("[sessions.Decode] missing data")
	}
	env.Data.Version = env.Version
	return &env, nil
}

// Written converts the envelope timestamp back to a time.
func (e *Envelope) Written() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}
