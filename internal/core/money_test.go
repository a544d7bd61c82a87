package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{
			name:  "dot separator",
			input: "12.34",
			want:  1234,
		},
		{
			name:  "comma separator",
			input: "12,34",
			want:  1234,
		},
		{
			name:  "whole number",
			input: "45",
			want:  4500,
		},
		{
			name:  "single decimal digit",
			input: "1.5",
			want:  150,
		},
		{
			name:  "third decimal rounds up",
			input: "1.005",
			want:  101,
		},
		{
			name:  "third decimal rounds down",
			input: "1.004",
			want:  100,
		},
		{
			name:  "leading dot",
			input: ".99",
			want:  99,
		},
		{
			name:    "negative rejected",
			input:   "-5.00",
			wantErr: true,
		},
		{
			name:    "explicit plus rejected",
			input:   "+5.00",
			wantErr: true,
		},
		{
			name:    "zero rejected",
			input:   "0.00",
			wantErr: true,
		},
		{
			name:    "empty rejected",
			input:   "",
			wantErr: true,
		},
		{
			name:    "letters rejected",
			input:   "12a.00",
			wantErr: true,
		},
		{
			name:    "two separators rejected",
			input:   "1.2.3",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseDecimalToCents(%q) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimalToCents(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{cents: 1234, want: "12.34"},
		{cents: -7000, want: "-70.00"},
		{cents: 5, want: "0.05"},
		{cents: 0, want: "0.00"},
	}

	for _, tt := range tests {
		if got := FormatCents(tt.cents); got != tt.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
