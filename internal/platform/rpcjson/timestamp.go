package rpcjson

import (
	"bytes"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Timestamp is a message field holding a google.protobuf.Timestamp. On the wire it is the protobuf
// JSON form: an RFC 3339 string in UTC.
type Timestamp struct {
	*timestamppb.Timestamp
}

// NewTimestamp returns t as a wire timestamp.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Timestamp: timestamppb.New(t)}
}

// OptionalTimestamp returns nil for a nil t.
func OptionalTimestamp(t *time.Time) *Timestamp {
	if t == nil {
		return nil
	}
	return NewTimestamp(*t)
}

// AsTime is nil-safe; a missing timestamp is the Unix epoch.
func (t *Timestamp) AsTime() time.Time {
	if t == nil {
		return time.Unix(0, 0).UTC()
	}
	return t.Timestamp.AsTime()
}

func (t *Timestamp) IsValid() bool {
	return t != nil && t.Timestamp != nil && t.Timestamp.IsValid()
}

func (t *Timestamp) MarshalJSON() ([]byte, error) {
	if t == nil || t.Timestamp == nil {
		return []byte("null"), nil
	}
	return protojson.Marshal(t.Timestamp)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Timestamp = nil
		return nil
	}
	ts := &timestamppb.Timestamp{}
	if err := protojson.Unmarshal(data, ts); err != nil {
		return err
	}
	t.Timestamp = ts
	return nil
}
