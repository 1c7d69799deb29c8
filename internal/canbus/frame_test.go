package canbus

import (
	"errors"
	"testing"
)

func TestNewFrame(t *testing.T) {
	tests := []struct {
		name     string
		id       uint32
		data     []byte
		wantErr  error
		extended bool
	}{
		{"standard", 0x680, []byte{0x31, 0x00, 0xFA}, nil, false},
		{"extended id", 0x12345, []byte{0x01}, nil, true},
		{"too long", 0x180, make([]byte, 9), ErrInvalidLength, false},
		{"id out of range", 0x3FFFFFFF, nil, ErrInvalidID, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFrame(tt.id, tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewFrame() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFrame() error = %v", err)
			}
			if f.Extended != tt.extended {
				t.Errorf("Extended = %v, want %v", f.Extended, tt.extended)
			}
			if len(f.Payload()) != len(tt.data) {
				t.Errorf("len(Payload()) = %d, want %d", len(f.Payload()), len(tt.data))
			}
		})
	}
}

func TestFrame_String(t *testing.T) {
	f, err := NewFrame(0x180, []byte{0x32, 0x10, 0xFA, 0xC0, 0xFC, 0x01, 0xC2})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := f.String(), "180#32 10 FA C0 FC 01 C2"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSLCAN_EncodeDecode(t *testing.T) {
	f, err := NewFrame(0x680, []byte{0x31, 0x00, 0xFA, 0xC0, 0xFC, 0x00, 0x00})
	if err != nil {
		t.Fatal(err)
	}

	line, err := EncodeSLCAN(f)
	if err != nil {
		t.Fatalf("EncodeSLCAN() error = %v", err)
	}
	if want := "t68073100FAC0FC0000"; line != want {
		t.Fatalf("EncodeSLCAN() = %q, want %q", line, want)
	}

	got, err := DecodeSLCAN(line)
	if err != nil {
		t.Fatalf("DecodeSLCAN() error = %v", err)
	}
	if got != f {
		t.Errorf("DecodeSLCAN() = %v, want %v", got, f)
	}
}

func TestDecodeSLCAN_Extended(t *testing.T) {
	got, err := DecodeSLCAN("T0000050020102")
	if err != nil {
		t.Fatalf("DecodeSLCAN() error = %v", err)
	}
	if !got.Extended || got.ID != 0x500 || got.Len != 2 || got.Data[0] != 0x01 || got.Data[1] != 0x02 {
		t.Errorf("DecodeSLCAN() = %+v", got)
	}
}

func TestDecodeSLCAN_Malformed(t *testing.T) {
	for _, line := range []string{"", "z", "t18", "t1803AB", "t180ZAABBCC", "t1809"} {
		if _, err := DecodeSLCAN(line); !errors.Is(err, ErrMalformedLine) {
			t.Errorf("DecodeSLCAN(%q) error = %v, want ErrMalformedLine", line, err)
		}
	}
}
