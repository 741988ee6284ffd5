package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "MEMBER", 15)
	if err != nil {
		t.Fatalf("NewAccessToken() error = %v", err)
	}
	claims, err := ParseAccessToken("s3cret", tok.Token)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	if claims.Subject != "42" || claims.Role != "MEMBER" {
		t.Errorf("claims = %+v, want sub 42 role MEMBER", claims)
	}
	if _, err := ParseAccessToken("other", tok.Token); err == nil {
		t.Error("ParseAccessToken(wrong secret) error = nil")
	}
}

func TestExpiredAccessToken(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 1, "MEMBER", -1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAccessToken("s3cret", tok.Token); err == nil {
		t.Error("ParseAccessToken(expired) error = nil")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(hash, "correct horse") {
		t.Error("VerifyPassword(correct) = false")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("VerifyPassword(wrong) = true")
	}
}
