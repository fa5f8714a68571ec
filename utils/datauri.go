package utils

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// SplitDataURI breaks a "data:<mime>;base64,<payload>" string into its
// media type and raw base64 payload.
func SplitDataURI(dataURI string) (mediaType, payload string, err error) {
	if !strings.HasPrefix(dataURI, "data:") {
		return "", "", fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(dataURI, ",")
	if !ok {
		return "", "", fmt.Errorf("malformed data URI")
	}

	mediaType = strings.TrimPrefix(meta, "data:")
	mediaType = strings.SplitN(mediaType, ";", 2)[0]
	if mediaType == "" {
		return "", "", fmt.Errorf("data URI missing media type")
	}
	return mediaType, payload, nil
}

// DecodeDataURI returns the media type and decoded bytes of a base64
// data URI.
func DecodeDataURI(dataURI string) (string, []byte, error) {
	mediaType, payload, err := SplitDataURI(dataURI)
	if err != nil {
		return "", nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode image data: %w", err)
	}
	return mediaType, data, nil
}
