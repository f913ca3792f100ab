package credentials

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateOTP_LengthAndCharset(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		otp, err := GenerateOTP(length)
		if err != nil {
			t.Fatalf("GenerateOTP(%d) failed: %v", length, err)
		}
		if len(otp) != length {
			t.Fatalf("expected %d digits, got %q", length, otp)
		}
		for _, c := range otp {
			if c < '0' || c > '9' {
				t.Fatalf("non-digit character in otp %q", otp)
			}
		}
	}
}

func TestGenerateOTP_DefaultLength(t *testing.T) {
	otp, err := GenerateOTP(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(otp) != 6 {
		t.Fatalf("expected default length 6, got %d", len(otp))
	}
}

func TestGeneratePassCode_Format(t *testing.T) {
	date := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	code, err := GeneratePassCode("VP", date)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(code, "VP250314") {
		t.Fatalf("unexpected pass code prefix: %q", code)
	}
	if len(code) != len("VP250314")+4 {
		t.Fatalf("unexpected pass code length: %q", code)
	}
}

func TestHashAndCompareOTP(t *testing.T) {
	otp := "123456"
	hash, err := HashOTP(otp)
	if err != nil {
		t.Fatal(err)
	}
	if hash == otp {
		t.Fatal("hash must not equal plaintext")
	}
	if !CompareOTP(hash, otp) {
		t.Fatal("expected matching otp to verify")
	}
	if CompareOTP(hash, "000000") {
		t.Fatal("expected mismatched otp to fail")
	}
}
