package beacon

import (
	"errors"
	"testing"
)

func TestKind_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want string
	}{
		{KindLoad, "LOAD"},
		{KindTime, "TIME"},
		{KindUnload, "UNLOAD"},
		{Kind(0), "Kind(0)"},
		{Kind(9), "Kind(9)"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"LOAD", KindLoad, false},
		{"time", KindTime, false},
		{" UNLOAD ", KindUnload, false},
		{"SCROLL", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseKind(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKind) {
					t.Errorf("ParseKind(%q) error = %v, want ErrInvalidKind", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKind_Valid(t *testing.T) {
	t.Parallel()

	for _, k := range []Kind{KindLoad, KindTime, KindUnload} {
		if !k.Valid() {
			t.Errorf("%v should be valid", k)
		}
	}
	for _, k := range []Kind{0, 4, -1} {
		if k.Valid() {
			t.Errorf("Kind(%d) should be invalid", int(k))
		}
	}
}
