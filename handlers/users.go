// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/pollspree/avatars"
	"github.com/danielhkuo/pollspree/cliparse"
	"github.com/danielhkuo/pollspree/db"
	"github.com/danielhkuo/pollspree/middleware"
	"github.com/danielhkuo/pollspree/models"
	"github.com/danielhkuo/pollspree/textfilter"
	"github.com/danielhkuo/pollspree/username"
)

// AvatarUploader signs profile picture uploads
type AvatarUploader interface {
	UploadURL(ctx context.Context, fileName, contentType string) (avatars.Upload, error)
}

// checkUsername runs shape, content and reservation checks in that order
func checkUsername(filter *textfilter.Filter, name string) error {
	if err := username.Validate(name); err != nil {
		return invalid(err.Error())
	}
	if !filter.Allowed(name) {
		return invalid("Username contains inappropriate content and cannot be used.")
	}
	if username.IsReserved(name) {
		return invalid(username.ErrReserved.Error())
	}
	return nil
}

// renameAuthor sets the user's username and copies it onto their polls
func renameAuthor(ctx context.Context, tx *sql.Tx, userID, name string) error {
	_, err := tx.ExecContext(ctx, "UPDATE app_user SET username = $1 WHERE user_id = $2", name, userID)
	if db.IsUniqueViolation(err) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE poll SET author_username = $1 WHERE author_id = $2", name, userID); err != nil {
		return fmt.Errorf("failed to update poll authors: %w", err)
	}
	return nil
}

// UpsertUser creates the profile for userID, or renames an existing one.
// A nil profileImageURL leaves the stored avatar untouched. The bool
// reports whether an existing profile was updated.
func UpsertUser(ctx context.Context, conn *sql.DB, filter *textfilter.Filter, userID, name string, profileImageURL *string) (bool, error) {
	if err := checkUsername(filter, name); err != nil {
		return false, err
	}

	var updated bool
	err := db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM app_user WHERE user_id = $1", userID).Scan(&one)
		switch {
		case err == nil:
			updated = true
			if err := renameAuthor(ctx, tx, userID, name); err != nil {
				return err
			}
			if profileImageURL != nil {
				if _, err := tx.ExecContext(ctx, "UPDATE app_user SET profile_image_url = $1 WHERE user_id = $2", *profileImageURL, userID); err != nil {
					return fmt.Errorf("failed to update profile image: %w", err)
				}
			}
			return nil
		case err != sql.ErrNoRows:
			return fmt.Errorf("failed to query user: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO app_user (user_id, username, profile_image_url, created_at)
			VALUES ($1, $2, $3, $4)
		`, userID, name, profileImageURL, nowMillis())
		if db.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	})
	return updated, err
}

// UpdateUsername renames an existing user and their polls
func UpdateUsername(ctx context.Context, conn *sql.DB, filter *textfilter.Filter, userID, name string) error {
	if err := checkUsername(filter, name); err != nil {
		return err
	}

	return db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, "SELECT user_id FROM app_user WHERE username = $1", name).Scan(&owner)
		if err == nil && owner != userID {
			return ErrUsernameTaken
		}
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to query username: %w", err)
		}

		var one int
		err = tx.QueryRowContext(ctx, "SELECT 1 FROM app_user WHERE user_id = $1", userID).Scan(&one)
		if err == sql.ErrNoRows {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query user: %w", err)
		}

		return renameAuthor(ctx, tx, userID, name)
	})
}

// UpdateProfileImage sets the avatar. It reports skipped when the user has
// no profile yet; the avatar is then set when the profile is created.
func UpdateProfileImage(ctx context.Context, conn *sql.DB, userID, url string) (bool, error) {
	res, err := conn.ExecContext(ctx, "UPDATE app_user SET profile_image_url = $1 WHERE user_id = $2", url, userID)
	if err != nil {
		return false, fmt.Errorf("failed to update profile image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 0, nil
}

const userSelect = "SELECT user_id, username, profile_image_url, created_at FROM app_user"

// GetUser finds a user by id or username
func GetUser(ctx context.Context, q queryer, column, value string) (*models.User, error) {
	if column != "user_id" && column != "username" {
		return nil, fmt.Errorf("unsupported user lookup column %q", column)
	}

	var u models.User
	err := q.QueryRowContext(ctx, userSelect+" WHERE "+column+" = $1", value).
		Scan(&u.UserID, &u.Username, &u.ProfileImageURL, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// ListUsers returns every username with its creation time, oldest first
func ListUsers(ctx context.Context, q queryer) ([]models.UserSummary, error) {
	rows, err := q.QueryContext(ctx, "SELECT username, created_at FROM app_user ORDER BY created_at, username")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.Username, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type UserHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	filter   *textfilter.Filter
	uploader AvatarUploader
}

// NewUserHandler builds the handler. uploader may be nil when no avatar
// bucket is configured.
func NewUserHandler(db *sql.DB, cfg cliparse.Config, filter *textfilter.Filter, uploader AvatarUploader) *UserHandler {
	return &UserHandler{db: db, cfg: cfg, filter: filter, uploader: uploader}
}

// Upsert handles POST /users
func (h *UserHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.UpsertUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.JSONResponse(w, http.StatusBadRequest, models.UpsertUserResponse{Error: "Invalid JSON"})
		return
	}

	updated, err := UpsertUser(r.Context(), h.db, h.filter, userID, req.Username, req.ProfileImageURL)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			slog.Error("failed to upsert user", "error", err, "user_id", userID)
		}
		middleware.JSONResponse(w, status, models.UpsertUserResponse{Error: messageFor(err)})
		return
	}

	slog.Info("user saved", "user_id", userID, "username", req.Username, "updated", updated)

	status := http.StatusCreated
	if updated {
		status = http.StatusOK
	}
	middleware.JSONResponse(w, status, models.UpsertUserResponse{Success: true, Updated: updated})
}

// UpdateUsername handles PUT /users/me/username
func (h *UserHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.UpdateUsernameRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.JSONResponse(w, http.StatusBadRequest, models.MutationResponse{Error: "Invalid JSON"})
		return
	}

	if err := UpdateUsername(r.Context(), h.db, h.filter, userID, req.Username); err != nil {
		writeMutationError(w, err, "failed to update username", "user_id", userID)
		return
	}

	slog.Info("username changed", "user_id", userID, "username", req.Username)
	middleware.JSONResponse(w, http.StatusOK, models.MutationResponse{Success: true})
}

// UpdateProfileImage handles PUT /users/me/profile-image
func (h *UserHandler) UpdateProfileImage(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.UpdateProfileImageRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.ProfileImageURL) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "profile_image_url is required")
		return
	}

	skipped, err := UpdateProfileImage(r.Context(), h.db, userID, req.ProfileImageURL)
	if err != nil {
		writeError(w, err, "failed to update profile image", "user_id", userID)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.UpdateProfileImageResponse{Success: true, Skipped: skipped})
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	user, err := GetUser(r.Context(), h.db, "user_id", userID)
	if err != nil {
		writeError(w, err, "failed to load user", "user_id", userID)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, user)
}

// ByUsername handles GET /usernames/{username}
func (h *UserHandler) ByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := GetUser(r.Context(), h.db, "username", r.PathValue("username"))
	if err != nil {
		writeError(w, err, "failed to load user", "username", r.PathValue("username"))
		return
	}
	middleware.JSONResponse(w, http.StatusOK, user)
}

// List handles GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := ListUsers(r.Context(), h.db)
	if err != nil {
		writeError(w, err, "failed to list users")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, users)
}

// AvatarUpload handles POST /users/me/avatar-upload
func (h *UserHandler) AvatarUpload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		middleware.ErrorResponse(w, http.StatusNotImplemented, "Avatar uploads are not configured")
		return
	}

	var req models.AvatarUploadRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	upload, err := h.uploader.UploadURL(r.Context(), req.FileName, req.ContentType)
	if errors.Is(err, avatars.ErrInvalidUpload) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Upload must be an image with a file name")
		return
	}
	if err != nil {
		slog.Error("failed to presign avatar upload", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to generate upload URL")
		return
	}

	userID, _ := middleware.UserID(r.Context())
	slog.Info("avatar upload signed", "user_id", userID, "key", upload.Key)

	middleware.JSONResponse(w, http.StatusOK, models.AvatarUploadResponse{
		UploadURL: upload.URL,
		Key:       upload.Key,
		PublicURL: upload.PublicURL,
	})
}
