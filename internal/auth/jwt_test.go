package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJWTFlow(t *testing.T) {
	tokens, err := NewTokens("test-secret-key-12345", 0)
	if err != nil {
		t.Fatal(err)
	}

	userID := uuid.New().String()
	email := "test@example.com"

	token, err := tokens.Generate(userID, email, RoleViewer)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("Expected userID %s, got %s", userID, claims.UserID)
	}
	if claims.Email != email {
		t.Fatalf("Expected email %s, got %s", email, claims.Email)
	}
	if claims.Role != RoleViewer {
		t.Fatalf("Expected role %s, got %s", RoleViewer, claims.Role)
	}
}

func TestJWTExpired(t *testing.T) {
	tokens, err := NewTokens("test-secret-key-12345", time.Nanosecond)
	if err != nil {
		t.Fatal(err)
	}

	token, err := tokens.Generate("u1", "a@b.c", RoleManager)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(1100 * time.Millisecond)

	if _, err := tokens.Validate(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestJWTEmptyUserID(t *testing.T) {
	tokens, _ := NewTokens("test-secret-key-12345", 0)
	if _, err := tokens.Generate("", "a@b.c", RoleViewer); err == nil {
		t.Fatal("expected an error for an empty user id")
	}
}
