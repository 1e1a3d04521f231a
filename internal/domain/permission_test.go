package domain

import "testing"

func TestParsePermission(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{"can_view_other_teams_tickets", false},
		{"show_alltickets", false},
		{"delete_mytickets", false},
		{"manage_users", true},
		{"", true},
		{"SHOW_ALLTICKETS", true},
	}
	for _, tc := range cases {
		perm, err := ParsePermission(tc.name)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePermission(%q) = %q, want error", tc.name, perm)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePermission(%q) error: %v", tc.name, err)
		}
		if string(perm) != tc.name {
			t.Errorf("ParsePermission(%q) = %q", tc.name, perm)
		}
	}
}

func TestPermissionSet(t *testing.T) {
	set := NewPermissionSet([]Permission{PermShowMyTickets, PermEditMyTickets})

	if !set.Has(PermShowMyTickets) {
		t.Fatal("Has(show_mytickets) = false, want true")
	}
	if set.Has(PermDeleteMyTickets) {
		t.Fatal("Has(delete_mytickets) = true, want false")
	}
	if !set.HasAll(PermShowMyTickets, PermEditMyTickets) {
		t.Fatal("HasAll of members = false, want true")
	}
	if set.HasAll(PermShowMyTickets, PermDeleteMyTickets) {
		t.Fatal("HasAll with missing member = true, want false")
	}
}
