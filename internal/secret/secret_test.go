package secret

import "testing"

func TestVersionPath(t *testing.T) {
	tests := []struct {
		name       string
		projectID  string
		secretName string
		want       string
		wantErr    bool
	}{
		{
			name:       "bare name resolved under project",
			projectID:  "proj-1",
			secretName: "pinnokio_postgres_neon",
			want:       "projects/proj-1/secrets/pinnokio_postgres_neon/versions/latest",
		},
		{
			name:       "fully qualified path without version",
			projectID:  "proj-1",
			secretName: "projects/other/secrets/foo",
			want:       "projects/other/secrets/foo/versions/latest",
		},
		{
			name:       "fully qualified path with version left untouched",
			projectID:  "proj-1",
			secretName: "projects/other/secrets/foo/versions/3",
			want:       "projects/other/secrets/foo/versions/3",
		},
		{
			name:       "bare name without project id errors",
			projectID:  "",
			secretName: "foo",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := versionPath(tt.projectID, tt.secretName)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("versionPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
