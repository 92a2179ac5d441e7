package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestReportStatusValid(t *testing.T) {
	tests := []struct {
		status   ReportStatus
		expected bool
	}{
		{StatusDraft, true},
		{StatusSubmitted, true},
		{StatusCompleted, true},
		{"draft", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.expected {
			t.Errorf("Valid(%q) = %v, expected %v", tt.status, got, tt.expected)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("Admin"); !ok || r != RoleAdmin {
		t.Errorf("Expected Admin role, got %q (%v)", r, ok)
	}
	if r, ok := ParseRole("Inspektur"); !ok || r != RoleInspektur {
		t.Errorf("Expected Inspektur role, got %q (%v)", r, ok)
	}
	if _, ok := ParseRole("admin"); ok {
		t.Error("Expected lowercase role to be rejected")
	}
}

func TestUserPasswordNotSerialized(t *testing.T) {
	u := User{ID: "u1", Username: "admin", PasswordHash: "secret-hash", Role: RoleAdmin}

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Failed to marshal user: %v", err)
	}
	if strings.Contains(string(data), "secret-hash") {
		t.Errorf("Password hash leaked into JSON: %s", data)
	}
	if !u.IsAdmin() {
		t.Error("Expected admin user to be admin")
	}
	var nilUser *User
	if nilUser.IsAdmin() {
		t.Error("Expected nil user not to be admin")
	}
}
