package domain

import "testing"

func TestDocument_StoragePath(t *testing.T) {
	tests := []struct {
		name    string
		fileURL string
		want    string
	}{
		{
			name:    "public url",
			fileURL: "https://xyz.supabase.co/storage/v1/object/public/documents/user-1/1741082400000.pdf",
			want:    "user-1/1741082400000.pdf",
		},
		{
			name:    "other bucket",
			fileURL: "https://xyz.supabase.co/storage/v1/object/public/avatars/user-1.png",
			want:    "",
		},
		{
			name:    "empty",
			fileURL: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{FileURL: tt.fileURL}
			if got := doc.StoragePath("documents"); got != tt.want {
				t.Errorf("StoragePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRole_Valid(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleUser, RoleModerator} {
		if !role.Valid() {
			t.Errorf("expected %q to be valid", role)
		}
	}
	if Role("owner").Valid() {
		t.Errorf("expected owner to be invalid")
	}
}
