package credentials

import "testing"

func TestGenerateJoinCode(t *testing.T) {
	tests := []struct {
		name        string
		iterations  int
		checkUnique bool
	}{
		{
			name:       "generates codes of correct length and alphabet",
			iterations: 200,
		},
		{
			name:        "generates unique codes",
			iterations:  50,
			checkUnique: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i := 0; i < tt.iterations; i++ {
				code, err := GenerateJoinCode()
				if err != nil {
					t.Fatalf("GenerateJoinCode() error = %v", err)
				}

				if len(code) != JoinCodeLength {
					t.Errorf("code length %d, want %d", len(code), JoinCodeLength)
				}
				for _, c := range code {
					if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
						t.Errorf("code %q contains non-alphanumeric character %q", code, c)
					}
				}

				if tt.checkUnique {
					if seen[code] {
						t.Errorf("duplicate code generated: %s", code)
					}
					seen[code] = true
				}
			}
		})
	}
}

func TestGenerateJoinCodeUsesWholeAlphabet(t *testing.T) {
	// 62 symbols over 100 codes of 32 characters: every class should appear.
	var lower, upper, digit bool
	for i := 0; i < 100; i++ {
		code, err := GenerateJoinCode()
		if err != nil {
			t.Fatalf("GenerateJoinCode() error = %v", err)
		}
		for _, c := range code {
			switch {
			case c >= 'a' && c <= 'z':
				lower = true
			case c >= 'A' && c <= 'Z':
				upper = true
			case c >= '0' && c <= '9':
				digit = true
			}
		}
	}
	if !lower || !upper || !digit {
		t.Errorf("expected lower, upper and digit characters, got lower=%v upper=%v digit=%v", lower, upper, digit)
	}
}

func TestIsJoinCode(t *testing.T) {
	valid, err := GenerateJoinCode()
	if err != nil {
		t.Fatalf("GenerateJoinCode() error = %v", err)
	}

	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "generated code", code: valid, want: true},
		{name: "empty", code: "", want: false},
		{name: "too short", code: valid[:31], want: false},
		{name: "too long", code: valid + "a", want: false},
		{name: "contains dash", code: "abcdefghijklmnopqrstuvwxyz-12345", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsJoinCode(tt.code); got != tt.want {
				t.Errorf("IsJoinCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
