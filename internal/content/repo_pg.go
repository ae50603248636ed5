package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

var itemColumns = []string{
	"id", "kind", "title", "subject", "department", "section", "year", "tags",
	"description", "excerpt", "file_url", "storage_key", "file_name", "mime_type",
	"size_bytes", "uploader_id", "downloads", "created_at",
}

// PGRepo stores both kinds in the contents table.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	var kind string
	var tags []byte
	err := row.Scan(
		&it.ID, &kind, &it.Title, &it.Subject, &it.Department, &it.Section, &it.Year, &tags,
		&it.Description, &it.Excerpt, &it.FileURL, &it.StorageKey, &it.FileName, &it.MimeType,
		&it.SizeBytes, &it.UploaderID, &it.Downloads, &it.CreatedAt,
	)
	if err != nil {
		return Item{}, err
	}
	it.Kind = Kind(kind)
	it.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &it.Tags); err != nil {
			return Item{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	return it, nil
}

func (r *PGRepo) List(ctx context.Context, kind Kind, f Filter) ([]Item, error) {
	q := r.builder().Select(itemColumns...).From("contents").Where(squirrel.Eq{"kind": string(kind)})
	if f.Department != "" {
		q = q.Where(squirrel.Eq{"department": f.Department})
	}
	if f.Subject != "" {
		q = q.Where(squirrel.Eq{"subject": f.Subject})
	}
	if f.Section != "" {
		q = q.Where(squirrel.Expr("(section = ? OR tags @> jsonb_build_array(?::text))", f.Section, f.Section))
	}
	query, args, err := q.OrderBy("seq ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Plural(), err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepo) Get(ctx context.Context, kind Kind, id string) (Item, error) {
	query, args, err := r.builder().Select(itemColumns...).From("contents").
		Where(squirrel.Eq{"id": id, "kind": string(kind)}).Limit(1).ToSql()
	if err != nil {
		return Item{}, fmt.Errorf("build get query: %w", err)
	}
	it, err := scanItem(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

func (r *PGRepo) Create(ctx context.Context, it Item) error {
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	rawTags, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	query, args, err := r.builder().Insert("contents").Columns(itemColumns...).Values(
		it.ID, string(it.Kind), it.Title, it.Subject, it.Department, it.Section, it.Year, string(rawTags),
		it.Description, it.Excerpt, it.FileURL, it.StorageKey, it.FileName, it.MimeType,
		it.SizeBytes, it.UploaderID, it.Downloads, it.CreatedAt,
	).ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", it.Kind, err)
	}
	return nil
}

// IncrementDownloads relies on the database to add one atomically.
func (r *PGRepo) IncrementDownloads(ctx context.Context, kind Kind, id string) (Item, error) {
	query, args, err := r.builder().Update("contents").
		Set("downloads", squirrel.Expr("downloads + 1")).
		Where(squirrel.Eq{"id": id, "kind": string(kind)}).
		Suffix("RETURNING " + strings.Join(itemColumns, ", ")).
		ToSql()
	if err != nil {
		return Item{}, fmt.Errorf("build increment query: %w", err)
	}
	it, err := scanItem(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

func (r *PGRepo) CountByDepartment(ctx context.Context, kind Kind) (map[string]int, error) {
	query, args, err := r.builder().Select("department", "COUNT(*)").From("contents").
		Where(squirrel.Eq{"kind": string(kind)}).GroupBy("department").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", kind.Plural(), err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var dept string
		var n int
		if err := rows.Scan(&dept, &n); err != nil {
			return nil, err
		}
		counts[dept] = n
	}
	return counts, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
