package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const cursorPrefix = "failures"

// FailureCursor points at the next failure to return. The failure list is
// append-only, so an offset stays valid until the list is cleared.
type FailureCursor struct {
	Offset int64
}

func DecodeFailureCursor(cursorStr string) (*FailureCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 || decodedParts[0] != cursorPrefix {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var offset int64
	if _, err := fmt.Sscanf(decodedParts[1], "%d", &offset); err != nil {
		return nil, fmt.Errorf("invalid offset in cursor: %w", err)
	}
	if offset < 0 {
		return nil, fmt.Errorf("invalid offset in cursor: %d", offset)
	}

	return &FailureCursor{Offset: offset}, nil
}

func EncodeFailureCursor(cursor *FailureCursor) string {
	cs := fmt.Sprintf("%s|%d", cursorPrefix, cursor.Offset)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}
