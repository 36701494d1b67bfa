package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "schema mismatch",
			err:         &SchemaMismatchError{Table: "prevalence_male_teen", Column: "Country Code", Reason: "missing"},
			wantCode:    "SCH001",
			wantMessage: "A source table does not match its expected layout",
		},
		{
			name:        "unknown source",
			err:         fmt.Errorf("%w: %q", ErrUnknownSource, "tb_cases"),
			wantCode:    "SRC001",
			wantMessage: "A data source is not configured or not loaded",
		},
		{
			name:        "missing file",
			err:         fmt.Errorf("open data/hiv.csv: %w", fs.ErrNotExist),
			wantCode:    "SRC002",
			wantMessage: "A source file could not be opened",
		},
		{
			name:        "csv parse error",
			err:         errors.New("record on line 3: parse error on line 3, column 5: bare \" in non-quoted-field"),
			wantCode:    "SRC002",
			wantMessage: "A source file is not a valid CSV",
		},
		{
			name:        "database unreachable",
			err:         errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantCode:    "SRC003",
			wantMessage: "Unable to connect to the source database",
		},
		{
			name:        "no data for country",
			err:         fmt.Errorf("%w: %q", ErrNoDataForCountry, "Atlantis"),
			wantCode:    "DATA001",
			wantMessage: "No data reported for this country",
		},
		{
			name:        "no data for year",
			err:         fmt.Errorf("%w: %d", ErrNoDataForYear, 1850),
			wantCode:    "DATA002",
			wantMessage: "No data reported for this year",
		},
		{
			name:        "invalid filter",
			err:         &FilterError{Field: "scatter_year", Value: 1800, Fallback: 1990},
			wantCode:    "FLT001",
			wantMessage: "A selection was outside the available range",
		},
		{
			name:        "unknown view",
			err:         fmt.Errorf("%w: %q", ErrUnknownView, "pie"),
			wantCode:    "VIEW001",
			wantMessage: "Unknown view",
		},
		{
			name:        "cancelled",
			err:         context.Canceled,
			wantCode:    "REQ001",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "timeout",
			err:         fmt.Errorf("load sources: %w", context.DeadlineExceeded),
			wantCode:    "REQ002",
			wantMessage: "Request timed out",
		},
		{
			name:        "malformed body",
			err:         errors.New("invalid request body: unexpected EOF"),
			wantCode:    "REQ003",
			wantMessage: "The request could not be read",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "busy renderer",
			err:         errors.New("chart renderer busy"),
			wantCode:    "RATE002",
			wantMessage: "The chart service is busy",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("SCHEMA MISMATCH in header"),
			wantCode:    "SCH001",
			wantMessage: "A source table does not match its expected layout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := fmt.Errorf("%w: %q", ErrNoDataForCountry, "Atlantis")
	result := FormatUserError(err)

	expected := "No data reported for this country (Code: DATA001). Select another country"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrNoDataForYear,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("%w: %q", ErrUnknownView, "pie")
		userErr := NewUserError(techErr)

		if userErr.Error() != "Unknown view" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, ErrUnknownView) {
			t.Error("Unwrap() should return original error")
		}
	})
}
