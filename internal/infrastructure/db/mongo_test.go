package db

import "testing"

func TestRedactURI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"mongodb://localhost:27017/?replicaSet=rs0", "mongodb://localhost:27017/?replicaSet=rs0"},
		{"mongodb://app:s3cret@db:27017/links", "mongodb://app:xxxxx@db:27017/links"},
		{"://bad", "invalid-uri"},
	}

	for _, tt := range tests {
		if got := redactURI(tt.in); got != tt.want {
			t.Errorf("redactURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
