package message

import (
	"fmt"
	"unicode/utf8"
)

const (
	MaxTextBytes = 4096      // 4KB max text payload
	MaxTextChars = 2000      // max character count
	MaxFileBytes = 12 << 20  // cap on the opaque encoded file payload
)

// ValidateText checks that message text meets content requirements. Empty
// text is allowed (file-only messages carry no text).
func ValidateText(text string) error {
	if len(text) == 0 {
		return nil
	}
	if len(text) > MaxTextBytes {
		return fmt.Errorf("message text exceeds %d byte limit", MaxTextBytes)
	}
	if utf8.RuneCountInString(text) > MaxTextChars {
		return fmt.Errorf("message text exceeds %d character limit", MaxTextChars)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("message text contains invalid UTF-8")
	}
	return nil
}

// ValidateFile checks the size of an opaque file payload. The payload bytes
// are never decoded or inspected.
func ValidateFile(f *File) error {
	if f == nil {
		return nil
	}
	if f.Name == "" {
		return fmt.Errorf("file payload is missing a name")
	}
	if len(f.Data) > MaxFileBytes {
		return fmt.Errorf("file payload exceeds %d byte limit", MaxFileBytes)
	}
	return nil
}
