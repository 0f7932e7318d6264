package audio

import (
	"context"
	"encoding/base64"
)

// Store persists synthesized audio and returns a playable URL.
type Store interface {
	Put(ctx context.Context, data []byte, format Format) (string, error)
}

// SilentURL is the placeholder handed out when synthesis fails.
var SilentURL = DataURL(SilentWAV(250), FormatWAV)

// DataURL encodes data inline as a data: URL.
func DataURL(data []byte, format Format) string {
	return "data:" + format.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DataURLStore returns audio inline. It needs no external storage.
type DataURLStore struct{}

func (DataURLStore) Put(_ context.Context, data []byte, format Format) (string, error) {
	if format == FormatUnknown {
		format = DetectFormat(data)
	}
	return DataURL(data, format), nil
}
