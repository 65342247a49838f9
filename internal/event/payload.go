package event

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParsePayload extracts the decimal index after ">>" in a workspace line.
// Frames may arrive NUL-padded to a fixed width, so NULs are trimmed along
// with whitespace.
func ParsePayload(line string) (uint32, error) {
	first, _, _ := strings.Cut(line, string(lineTerminator))
	cleaned := strings.TrimFunc(first, isPadding)

	_, tail, found := strings.Cut(cleaned, Separator)
	if !found {
		return 0, fmt.Errorf("%w: no %q in %q", ErrMalformedPayload, Separator, cleaned)
	}

	tail = strings.TrimFunc(tail, isPadding)
	n, err := strconv.ParseUint(tail, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid index %q", ErrMalformedPayload, tail)
	}
	return uint32(n), nil
}

func isPadding(r rune) bool {
	return r == 0 || unicode.IsSpace(r)
}
