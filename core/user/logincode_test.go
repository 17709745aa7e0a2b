package user

import (
	"testing"
	"time"
)

func TestGenerateLoginCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := generateLoginCode()
		if err != nil {
			t.Fatalf("generateLoginCode() error = %v", err)
		}
		if len(code) != loginCodeDigits {
			t.Fatalf("generateLoginCode() = %q, want %d digits", code, loginCodeDigits)
		}
		for _, char := range code {
			if char < '0' || char > '9' {
				t.Fatalf("generateLoginCode() = %q, want numeric only", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("generateLoginCode() produced the same code 20 times")
	}
}

func TestVerifyLoginCode(t *testing.T) {
	secretKey := "secret"
	now := time.Now()
	code := "123456"

	usr := User{
		ID:                 "uid",
		Email:              "asha@kluniversity.in",
		LoginCodeHash:      hashLoginCode(secretKey, "asha@kluniversity.in", code),
		LoginCodeExpiresAt: now.Add(10 * time.Minute),
	}

	// generate an expired code state
	expiredUsr := usr
	expiredUsr.LoginCodeExpiresAt = now.Add(-time.Minute)

	// code issued for another account
	otherUsr := usr
	otherUsr.Email = "badru@kluniversity.in"

	consumedUsr := usr
	consumedUsr.LoginCodeHash = ""

	tests := []struct {
		name    string
		usr     User
		code    string
		wantErr error
	}{
		{name: "valid code", usr: usr, code: code},
		{name: "no code submitted", usr: usr, code: "", wantErr: ErrInvalidLoginCode},
		{name: "wrong code", usr: usr, code: "654321", wantErr: ErrInvalidLoginCode},
		{name: "expired code", usr: expiredUsr, code: code, wantErr: ErrLoginCodeExpired},
		{name: "code bound to another email", usr: otherUsr, code: code, wantErr: ErrInvalidLoginCode},
		{name: "already consumed", usr: consumedUsr, code: code, wantErr: ErrInvalidLoginCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyLoginCode(tt.usr, secretKey, tt.code); err != tt.wantErr {
				t.Errorf("verifyLoginCode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifyLoginCode_mockedClock(t *testing.T) {
	secretKey := "secret"
	code := "123456"
	usr := User{
		Email:              "asha@kluniversity.in",
		LoginCodeHash:      hashLoginCode(secretKey, "asha@kluniversity.in", code),
		LoginCodeExpiresAt: time.Now().Add(10 * time.Minute),
	}

	NowFunc = func() time.Time { return time.Now().Add(11 * time.Minute) }
	defer func() { NowFunc = time.Now }()

	if err := verifyLoginCode(usr, secretKey, code); err != ErrLoginCodeExpired {
		t.Errorf("verifyLoginCode() error = %v, want ErrLoginCodeExpired past the TTL", err)
	}
}

func TestHashLoginCode_deterministic(t *testing.T) {
	h1 := hashLoginCode("secret", "asha@kluniversity.in", "123456")
	h2 := hashLoginCode("secret", "asha@kluniversity.in", "123456")
	if h1 != h2 {
		t.Error("hashLoginCode() not deterministic for identical inputs")
	}
	if h1 == hashLoginCode("other", "asha@kluniversity.in", "123456") {
		t.Error("hashLoginCode() ignores the secret key")
	}
	if h1 == "123456" {
		t.Error("hashLoginCode() stored the code in the clear")
	}
}
