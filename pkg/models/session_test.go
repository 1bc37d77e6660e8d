package models

import "testing"

func TestSessionStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status SessionStatus
		want   bool
	}{
		{"active is valid", SessionActive, true},
		{"completed is valid", SessionCompleted, true},
		{"cancelled is valid", SessionCancelled, true},
		{"empty string is invalid", SessionStatus(""), false},
		{"unknown status is invalid", SessionStatus("paused"), false},
		{"uppercase is invalid", SessionStatus("ACTIVE"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("SessionStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestInvocationStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status InvocationStatus
		want   bool
	}{
		{"pending is valid", InvocationPending, true},
		{"running is valid", InvocationRunning, true},
		{"done is valid", InvocationDone, true},
		{"failed is valid", InvocationFailed, true},
		{"timed_out is valid", InvocationTimedOut, true},
		{"cancelled is valid", InvocationCancelled, true},
		{"empty string is invalid", InvocationStatus(""), false},
		{"unknown status is invalid", InvocationStatus("skipped"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("InvocationStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
