// Package parentaccess mints and validates the opaque tokens behind
// /parent/{token} links. The token value is the entire security boundary
// for parent access, so it is 128 bits from crypto/rand and nothing less.
package parentaccess

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/campusconnect/backend/internal/db"
	"github.com/campusconnect/backend/internal/models"
)

// NowFunc is mockable for expiry tests.
var NowFunc = time.Now

type IssueOpts struct {
	ParentID   string
	ParentName string
	TTL        time.Duration // 0 = no expiry
}

// Issue mints a token for the student and revokes the previously current
// one. Returns an error on store failure; a caller about to hand out a
// portal link must know persistence did not happen.
func Issue(ctx context.Context, database *sql.DB, studentID string, opts IssueOpts) (string, error) {
	student, err := db.GetStudent(ctx, database, studentID)
	if err != nil {
		return "", fmt.Errorf("lookup student: %w", err)
	}
	if student == nil {
		return "", fmt.Errorf("student %s not found", studentID)
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}

	now := NowFunc().UTC()
	t := models.AccessToken{
		Token:      token,
		StudentID:  studentID,
		ParentID:   opts.ParentID,
		ParentName: opts.ParentName,
		CreatedAt:  now,
	}
	if opts.TTL > 0 {
		exp := now.Add(opts.TTL)
		t.ExpiresAt = &exp
	}

	if err := db.InsertTokenRevokingCurrent(ctx, database, t); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}
	return token, nil
}

// Validate resolves a token to its student id. Unknown, revoked and
// expired tokens all come back as "" without error; an error means the
// store itself failed and the caller should not treat the token as bad.
func Validate(ctx context.Context, database *sql.DB, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	t, err := db.GetToken(ctx, database, token)
	if err != nil {
		return "", err
	}
	if t == nil || !t.Live(NowFunc()) {
		return "", nil
	}
	return t.StudentID, nil
}

// newToken returns 128 random bits, base64url without padding (22 chars).
func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
