package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"any constraint", pgErr, "", true},
		{"matching constraint", fmt.Errorf("insert: %w", pgErr), "accounts_email_key", true},
		{"other constraint", pgErr, "invitations_token_key", false},
		{"other code", &pgconn.PgError{Code: "23503"}, "", false},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, "", true},
		{"plain error", errors.New("boom"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get: %w", gorm.ErrRecordNotFound)) {
		t.Error("expected wrapped ErrRecordNotFound to match")
	}
	if IsNotFound(errors.New("boom")) {
		t.Error("plain error must not match")
	}
}
