package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

var userColumns = []string{
	"id", "email", "name", "department", "section",
	"uploads_count", "downloads_count",
	"starred_departments", "starred_papers", "starred_notes",
	"password_hash", "picture_url", "provider", "version", "created_at",
}

// PGRepo stores users in PostgreSQL. Updates are guarded by the version
// column and retried on conflict.
type PGRepo struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var depts, papers, notes []byte
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Department, &u.Section,
		&u.UploadsCount, &u.DownloadsCount,
		&depts, &papers, &notes,
		&u.PasswordHash, &u.PictureURL, &u.Provider, &u.Version, &u.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	if u.StarredDepartments, err = decodeIDs(depts); err != nil {
		return User{}, err
	}
	if u.StarredPapers, err = decodeIDs(papers); err != nil {
		return User{}, err
	}
	if u.StarredNotes, err = decodeIDs(notes); err != nil {
		return User{}, err
	}
	return u, nil
}

func decodeIDs(raw []byte) ([]string, error) {
	ids := []string{}
	if len(raw) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode starred ids: %w", err)
	}
	return ids, nil
}

func encodeIDs(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	raw, _ := json.Marshal(ids)
	return string(raw)
}

func (r *PGRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *PGRepo) List(ctx context.Context) ([]User, error) {
	query, args, err := r.builder().Select(userColumns...).From("users").OrderBy("created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users query: %w", err)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PGRepo) getBy(ctx context.Context, where squirrel.Eq) (User, error) {
	query, args, err := r.builder().Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return User{}, fmt.Errorf("build get user query: %w", err)
	}
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r *PGRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

func (r *PGRepo) NamesByID(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	query, args, err := r.builder().Select("id", "name").From("users").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build names query: %w", err)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

func (r *PGRepo) Create(ctx context.Context, u User) error {
	if u.Version == 0 {
		u.Version = 1
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	query, args, err := r.builder().Insert("users").Columns(userColumns...).Values(
		u.ID, u.Email, u.Name, u.Department, u.Section,
		u.UploadsCount, u.DownloadsCount,
		encodeIDs(u.StarredDepartments), encodeIDs(u.StarredPapers), encodeIDs(u.StarredNotes),
		u.PasswordHash, u.PictureURL, u.Provider, u.Version, u.CreatedAt,
	).ToSql()
	if err != nil {
		return fmt.Errorf("build insert user query: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update reads the row, applies mutate and writes it back only if nobody
// bumped the version in between.
func (r *PGRepo) Update(ctx context.Context, id string, mutate MutateFunc) (User, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return User{}, err
		}
		next := current
		next.StarredDepartments = cloneIDs(current.StarredDepartments)
		next.StarredPapers = cloneIDs(current.StarredPapers)
		next.StarredNotes = cloneIDs(current.StarredNotes)
		if err := mutate(&next); err != nil {
			return User{}, err
		}
		next.ID = id
		next.Version = current.Version + 1

		query, args, err := r.builder().Update("users").SetMap(map[string]any{
			"name":                next.Name,
			"department":          next.Department,
			"section":             next.Section,
			"uploads_count":       next.UploadsCount,
			"downloads_count":     next.DownloadsCount,
			"starred_departments": encodeIDs(next.StarredDepartments),
			"starred_papers":      encodeIDs(next.StarredPapers),
			"starred_notes":       encodeIDs(next.StarredNotes),
			"password_hash":       next.PasswordHash,
			"picture_url":         next.PictureURL,
			"provider":            next.Provider,
			"version":             next.Version,
		}).Where(squirrel.Eq{"id": id, "version": current.Version}).ToSql()
		if err != nil {
			return User{}, fmt.Errorf("build update user query: %w", err)
		}
		res, err := r.DB.ExecContext(ctx, query, args...)
		if err != nil {
			return User{}, fmt.Errorf("update user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return next, nil
		}
	}
	return User{}, ErrConflict
}

// PGSessionRepo stores sessions in the sessions table.
type PGSessionRepo struct {
	DB *sql.DB
}

func (r *PGSessionRepo) Put(ctx context.Context, s Session) error {
	snapshot, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	const query = `
INSERT INTO sessions (id, user_id, snapshot, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err = r.DB.ExecContext(ctx, query, s.ID, s.UserID, string(snapshot), s.CreatedAt, s.ExpiresAt)
	return err
}

func (r *PGSessionRepo) Get(ctx context.Context, id string) (Session, error) {
	const query = `
SELECT id, user_id, snapshot, created_at, expires_at
FROM sessions
WHERE id = $1 AND expires_at > now()`
	var s Session
	var snapshot []byte
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.UserID, &snapshot, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	if err := json.Unmarshal(snapshot, &s.User); err != nil {
		return Session{}, fmt.Errorf("decode session user: %w", err)
	}
	return s, nil
}

func (r *PGSessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (r *PGSessionRepo) RefreshUser(ctx context.Context, u User) error {
	u.PasswordHash = ""
	snapshot, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	const query = `
UPDATE sessions SET snapshot = $1
WHERE user_id = $2 AND expires_at > now()`
	_, err = r.DB.ExecContext(ctx, query, string(snapshot), u.ID)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var (
	_ Repo        = (*PGRepo)(nil)
	_ SessionRepo = (*PGSessionRepo)(nil)
)
