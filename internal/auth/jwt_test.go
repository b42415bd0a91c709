package auth

import "testing"

func TestJWT_SignVerifyRoundTrip(t *testing.T) {
	j := NewJWT("test-secret")

	token, err := j.Sign(42)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	uid, err := j.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if uid != 42 {
		t.Fatalf("expected user 42, got %d", uid)
	}
}

func TestJWT_RejectsWrongSecret(t *testing.T) {
	token, err := NewJWT("secret-a").Sign(42)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := NewJWT("secret-b").Verify(token); err == nil {
		t.Fatal("token signed with another secret must not verify")
	}
}

func TestJWT_RejectsGarbage(t *testing.T) {
	if _, err := NewJWT("secret").Verify("not-a-token"); err == nil {
		t.Fatal("garbage must not verify")
	}
}

func TestPassword_HashCompare(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2hunter2" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !ComparePassword(hash, "hunter2hunter2") {
		t.Fatal("correct password should compare true")
	}
	if ComparePassword(hash, "wrong") {
		t.Fatal("wrong password should compare false")
	}
}
