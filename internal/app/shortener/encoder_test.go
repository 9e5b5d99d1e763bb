package shortener

import "testing"

const (
	testAlphabet  = "k3G7QAe51FCsiWrNOYBUwM6XzZvdLT4j9JhyHKg2cVbxfERq0mSoI8lDpunPat"
	testMinLength = 6
)

func newTestEncoder(t *testing.T) *Encoder {
	t.Helper()
	enc, err := NewEncoder(testAlphabet, testMinLength)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	return enc
}

func TestEncodeZeroNotEmpty(t *testing.T) {
	enc := newTestEncoder(t)
	code, err := enc.Encode(0)
	if err != nil {
		t.Fatalf("Encode(0): %v", err)
	}
	if code == "" {
		t.Fatal("Encode(0) returned empty string")
	}
	if len(code) < testMinLength {
		t.Fatalf("Encode(0): len=%d, want >= %d", len(code), testMinLength)
	}
}

// 同一配置下：每个 ID 编码两次结果一致（确定性），不同 ID 结果互不相同（单射）。
func TestEncodeDeterministicAndInjective(t *testing.T) {
	enc := newTestEncoder(t)
	seen := make(map[string]uint64, 1_000_001)
	for id := uint64(0); id <= 1_000_000; id++ {
		code, err := enc.Encode(id)
		if err != nil {
			t.Fatalf("Encode(%d): %v", id, err)
		}
		again, err := enc.Encode(id)
		if err != nil {
			t.Fatalf("Encode(%d) second call: %v", id, err)
		}
		if code != again {
			t.Fatalf("Encode(%d) not deterministic: %q vs %q", id, code, again)
		}
		if other, dup := seen[code]; dup {
			t.Fatalf("collision: Encode(%d) == Encode(%d) == %q", id, other, code)
		}
		seen[code] = id
		if len(code) < testMinLength {
			t.Fatalf("Encode(%d): len=%d, want >= %d", id, len(code), testMinLength)
		}
	}
}

func TestEncoderConfigChangesOutputSpace(t *testing.T) {
	enc := newTestEncoder(t)
	other, err := NewEncoder("0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ", testMinLength)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	a, _ := enc.Encode(1001)
	b, _ := other.Encode(1001)
	if a == b {
		t.Fatalf("different alphabets produced identical code %q", a)
	}
}
