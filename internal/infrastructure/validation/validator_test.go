package validation

import "testing"

type form struct {
	LongURL string `json:"longUrl" validate:"required,notblank"`
}

func TestValidateNotBlank(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"present", "https://example.com", false},
		{"empty", "", true},
		{"blank", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(form{LongURL: tt.value})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q) err = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if tt.wantErr {
				if got := FirstField(err); got != "longUrl" {
					t.Errorf("FirstField = %q, want %q", got, "longUrl")
				}
			}
		})
	}
}

func TestFirstFieldOnForeignError(t *testing.T) {
	if got := FirstField(nil); got != "" {
		t.Errorf("FirstField(nil) = %q", got)
	}
}
