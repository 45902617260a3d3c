package pidlock

import (
	"bytes"
	"fmt"
	"strconv"
)

// ParsePID decodes pidfile content: bare decimal digits naming a positive
// value that fits in pid_t. Anything wider would be truncated by kill(2) and
// could name an unrelated process or a whole process group.
func ParsePID(data []byte) (int, error) {
	text := string(bytes.TrimSpace(data))
	if text == "" {
		return 0, fmt.Errorf("%w: empty pidfile", ErrInvalidPID)
	}
	if text[0] < '0' || text[0] > '9' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPID, text)
	}
	pid, err := strconv.ParseInt(text, 10, 32)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPID, text)
	}
	return int(pid), nil
}

// FormatPID encodes pid as pidfile content.
func FormatPID(pid int) []byte {
	return []byte(strconv.Itoa(pid) + "\n")
}
