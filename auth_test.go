package main

import "testing"

func TestRegisterAndLogin(t *testing.T) {
	db := openTestDB(t)
	auth := NewAuth(db)

	id, token, err := auth.Register("tester", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id == 0 || token == "" {
		t.Fatal("expected id and token from Register")
	}

	// The token from registration resumes the account
	gotID, gotUser, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if gotID != id || gotUser != "tester" {
		t.Errorf("token claims mismatch: id=%d user=%s", gotID, gotUser)
	}

	// Password login works
	loginID, loginToken, err := auth.Login("tester", "secret", "1.2.3.4")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loginID != id || loginToken == "" {
		t.Error("login returned wrong account")
	}

	// Wrong password fails without leaking which part was wrong
	if _, _, err := auth.Login("tester", "wrong", "1.2.3.4"); err == nil {
		t.Error("expected error for wrong password")
	}
	if _, _, err := auth.Login("ghost", "secret", "1.2.3.4"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestRegisterValidation(t *testing.T) {
	db := openTestDB(t)
	auth := NewAuth(db)

	if _, _, err := auth.Register("x", "password"); err == nil {
		t.Error("expected error for too-short username")
	}
	if _, _, err := auth.Register("validname", "abc"); err == nil {
		t.Error("expected error for too-short password")
	}

	if _, _, err := auth.Register("taken", "password"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := auth.Register("taken", "password"); err == nil {
		t.Error("expected error for duplicate username")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	db := openTestDB(t)
	auth := NewAuth(db)

	if _, _, err := auth.ValidateToken("not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}

	// Token signed with a different secret is rejected
	other := NewAuth(nil)
	tok, err := other.generateToken(1, "intruder")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := auth.ValidateToken(tok); err == nil {
		t.Error("expected error for token with wrong signature")
	}
}

func TestLoginRateLimit(t *testing.T) {
	db := openTestDB(t)
	auth := NewAuth(db)

	for i := 0; i < maxLoginAttempts; i++ {
		auth.Login("tester", "wrong", "9.9.9.9")
	}
	_, _, err := auth.Login("tester", "wrong", "9.9.9.9")
	if err == nil || err.Error() != "too many login attempts, try again later" {
		t.Errorf("expected rate limit error, got %v", err)
	}

	// Other IPs are unaffected
	_, _, err = auth.Login("tester", "wrong", "8.8.8.8")
	if err == nil || err.Error() == "too many login attempts, try again later" {
		t.Errorf("rate limit leaked across IPs: %v", err)
	}
}

func TestJWTSecretPersisted(t *testing.T) {
	db := openTestDB(t)

	a1 := NewAuth(db)
	_, token, err := a1.Register("durable", "password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// A second Auth over the same database loads the same secret
	a2 := NewAuth(db)
	if _, _, err := a2.ValidateToken(token); err != nil {
		t.Errorf("token should survive auth restart, got %v", err)
	}
}

func TestSecretWithoutDB(t *testing.T) {
	// No database: a fresh random secret per instance, still functional
	a := NewAuth(nil)
	tok, err := a.generateToken(42, "mem")
	if err != nil {
		t.Fatal(err)
	}
	id, user, err := a.ValidateToken(tok)
	if err != nil || id != 42 || user != "mem" {
		t.Errorf("in-memory auth broken: %d %s %v", id, user, err)
	}
}
