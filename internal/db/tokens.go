package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusconnect/backend/internal/ctxutil"
	"github.com/campusconnect/backend/internal/models"
)

// InsertTokenRevokingCurrent stores a fresh token and revokes whatever
// token was current for the student, in one transaction. A parent link
// shared before reissue stops working the moment the new one exists.
func InsertTokenRevokingCurrent(ctx context.Context, database *sql.DB, t models.AccessToken) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE parent_access_tokens
		SET revoked_at = now()
		WHERE student_id = $1 AND revoked_at IS NULL
	`, t.StudentID); err != nil {
		return fmt.Errorf("revoke current: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO parent_access_tokens (token, student_id, parent_id, parent_name, created_at, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
	`, t.Token, t.StudentID, t.ParentID, t.ParentName, t.CreatedAt, t.ExpiresAt); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return tx.Commit()
}

// GetToken returns nil, nil for an unknown token value.
func GetToken(ctx context.Context, database *sql.DB, token string) (*models.AccessToken, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var t models.AccessToken
	var parentID, parentName sql.NullString
	err := database.QueryRowContext(ctx, `
		SELECT token, student_id, parent_id, parent_name, created_at, expires_at, revoked_at
		FROM parent_access_tokens
		WHERE token = $1
	`, token).Scan(&t.Token, &t.StudentID, &parentID, &parentName, &t.CreatedAt, &t.ExpiresAt, &t.RevokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.ParentID = parentID.String
	t.ParentName = parentName.String
	return &t, nil
}

// GetCurrentTokenForStudent resolves the discoverable (non-revoked) token.
func GetCurrentTokenForStudent(ctx context.Context, database *sql.DB, studentID string) (*models.AccessToken, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var t models.AccessToken
	var parentID, parentName sql.NullString
	err := database.QueryRowContext(ctx, `
		SELECT token, student_id, parent_id, parent_name, created_at, expires_at, revoked_at
		FROM parent_access_tokens
		WHERE student_id = $1 AND revoked_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, studentID).Scan(&t.Token, &t.StudentID, &parentID, &parentName, &t.CreatedAt, &t.ExpiresAt, &t.RevokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.ParentID = parentID.String
	t.ParentName = parentName.String
	return &t, nil
}

func RevokeTokensForStudent(ctx context.Context, database *sql.DB, studentID string) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := database.ExecContext(ctx, `
		UPDATE parent_access_tokens
		SET revoked_at = now()
		WHERE student_id = $1 AND revoked_at IS NULL
	`, studentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeDeadTokens removes rows that can never validate again.
func PurgeDeadTokens(ctx context.Context, database *sql.DB) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := database.ExecContext(ctx, `
		DELETE FROM parent_access_tokens
		WHERE revoked_at IS NOT NULL
		   OR (expires_at IS NOT NULL AND expires_at < now())
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
