package message

import (
	"strings"
	"testing"
)

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"empty allowed", "", false},
		{"normal text", "hello world", false},
		{"at byte limit", strings.Repeat("a", MaxTextChars), false},
		{"over char limit", strings.Repeat("a", MaxTextChars+1), true},
		{"over byte limit", strings.Repeat("é", MaxTextChars+100), true},
		{"invalid utf8", "hello\xff\xfe", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateText(tt.text)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateText: err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name    string
		file    *File
		wantErr bool
	}{
		{"nil allowed", nil, false},
		{"named file", &File{Name: "photo.png", Data: "aGVsbG8="}, false},
		{"missing name", &File{Data: "aGVsbG8="}, true},
		{"oversized payload", &File{Name: "big.bin", Data: strings.Repeat("A", MaxFileBytes+1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(tt.file)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFile: err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
