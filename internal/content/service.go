package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"papershare-backend/internal/departments"
	"papershare-backend/internal/extract"
	"papershare-backend/internal/shared/metrics"
	"papershare-backend/internal/shared/storage/object"
	"papershare-backend/internal/shared/telemetry"
	"papershare-backend/internal/shared/util"
	"papershare-backend/internal/users"
)

// UnknownUploader is shown when an uploader record is missing.
const UnknownUploader = "Unknown"

const excerptRunes = 2000

// UserDirectory is the slice of the user service content needs.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (users.User, error)
	NamesByID(ctx context.Context, ids []string) (map[string]string, error)
	AddUpload(ctx context.Context, id string) error
	AddDownload(ctx context.Context, id string) error
}

// Service contains business logic for papers and notes.
type Service struct {
	Repo    Repo
	Users   UserDirectory
	Objects object.ObjectStore
	Metrics metrics.Recorder
	Now     func() time.Time
}

func NewService(repo Repo, dir UserDirectory, objects object.ObjectStore) *Service {
	return &Service{Repo: repo, Users: dir, Objects: objects, Metrics: metrics.Nop{}, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) recorder() metrics.Recorder {
	if s.Metrics == nil {
		return metrics.Nop{}
	}
	return s.Metrics
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (s *Service) validate(ctx context.Context, in *CreateInput) error {
	in.Title = util.CleanText(in.Title)
	in.Subject = strings.ToUpper(util.CleanText(in.Subject))
	in.Department = strings.TrimSpace(in.Department)
	in.Section = strings.ToUpper(strings.TrimSpace(in.Section))
	in.Year = strings.TrimSpace(in.Year)
	in.Description = util.CleanText(in.Description)
	in.FileURL = strings.TrimSpace(in.FileURL)

	switch {
	case in.Kind != KindPaper && in.Kind != KindNote:
		return invalid("kind must be paper or note")
	case in.Title == "":
		return invalid("title is required")
	case in.Subject == "":
		return invalid("subject is required")
	case !departments.Known(in.Department):
		return invalid("department is not recognised")
	case in.Section != "UG" && in.Section != "PG":
		return invalid("section must be UG or PG")
	case strings.TrimSpace(in.UploaderID) == "":
		return invalid("uploader is required")
	}
	if _, err := s.Users.GetByID(ctx, in.UploaderID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return invalid("uploader does not exist")
		}
		return err
	}
	return nil
}

// Create validates input, stores a new item and credits the uploader.
func (s *Service) Create(ctx context.Context, in CreateInput) (Item, error) {
	if err := s.validate(ctx, &in); err != nil {
		return Item{}, err
	}
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in CreateInput) (Item, error) {
	item := Item{
		ID:          uuid.NewString(),
		Kind:        in.Kind,
		Title:       in.Title,
		Subject:     in.Subject,
		Department:  in.Department,
		Section:     in.Section,
		Year:        in.Year,
		Tags:        buildTags(in.Section, in.Year, in.Subject),
		Description: in.Description,
		Excerpt:     in.Excerpt,
		FileURL:     in.FileURL,
		StorageKey:  in.StorageKey,
		FileName:    in.FileName,
		MimeType:    in.MimeType,
		SizeBytes:   in.SizeBytes,
		UploaderID:  in.UploaderID,
		Downloads:   0,
		CreatedAt:   s.now(),
	}
	if err := s.Repo.Create(ctx, item); err != nil {
		return Item{}, fmt.Errorf("create %s: %w", in.Kind, err)
	}

	if err := s.Users.AddUpload(ctx, in.UploaderID); err != nil {
		telemetry.Warn("content.uploader_credit_failed", map[string]any{
			"item_id": item.ID, "user_id": in.UploaderID, "error": err.Error(),
		})
	}
	s.recorder().RecordUpload(string(in.Kind))
	telemetry.Info("content.created", map[string]any{"item_id": item.ID, "kind": string(item.Kind), "user_id": in.UploaderID})
	return item, nil
}

// Upload stores the file, extracts searchable text and creates the item.
// If the item cannot be created the stored file is removed again.
func (s *Service) Upload(ctx context.Context, in CreateInput, fileName string, r io.Reader) (Item, error) {
	if s.Objects == nil {
		return Item{}, errors.New("object store not configured")
	}
	if err := s.validate(ctx, &in); err != nil {
		return Item{}, err
	}
	cleanName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return Item{}, invalid("file name is invalid")
	}
	if !allowedExtension(cleanName) {
		return Item{}, invalid("unsupported file type")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Item{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Item{}, invalid("file is empty")
	}

	key, size, mimeType, err := s.Objects.Save(ctx, in.UploaderID, cleanName, bytes.NewReader(data))
	if err != nil {
		return Item{}, fmt.Errorf("store upload: %w", err)
	}
	if !allowedUpload(cleanName, mimeType) {
		s.removeObject(ctx, key)
		telemetry.Warn("content.upload_rejected", map[string]any{"file_name": cleanName, "mime_type": mimeType})
		return Item{}, invalid("unsupported file type")
	}

	text, err := extract.ExtractTextFromBytes(ctx, data, mimeType, cleanName)
	if err != nil {
		telemetry.Warn("content.extract_failed", map[string]any{"storage_key": key, "mime_type": mimeType, "error": err.Error()})
	}
	in.StorageKey = key
	in.FileName = cleanName
	in.MimeType = mimeType
	in.SizeBytes = size
	in.Excerpt = extract.Excerpt(text, excerptRunes)

	item, err := s.create(ctx, in)
	if err != nil {
		s.removeObject(ctx, key)
		return Item{}, err
	}
	return item, nil
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if err := s.Objects.Delete(ctx, key); err != nil {
		telemetry.Error("content.orphan_cleanup_failed", map[string]any{"storage_key": key, "error": err.Error()})
	}
}

// normalizeFilter brings filter values into the form validate stores them in.
func normalizeFilter(f Filter) Filter {
	f.Department = strings.TrimSpace(f.Department)
	f.Subject = strings.ToUpper(util.CleanText(f.Subject))
	f.Section = strings.ToUpper(strings.TrimSpace(f.Section))
	return f
}

func (s *Service) Get(ctx context.Context, kind Kind, id string) (Listing, error) {
	item, err := s.Repo.Get(ctx, kind, id)
	if err != nil {
		return Listing{}, err
	}
	return s.ResolveUploaderNames(ctx, []Item{item})[0], nil
}

// Exists reports whether an item of kind with id is stored.
func (s *Service) Exists(ctx context.Context, kind Kind, id string) (bool, error) {
	_, err := s.Repo.Get(ctx, kind, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// List filters, sorts and pages one kind.
func (s *Service) List(ctx context.Context, kind Kind, f Filter) ([]Listing, error) {
	f = normalizeFilter(f)
	items, err := s.Repo.List(ctx, kind, f)
	if err != nil {
		return nil, err
	}
	sortItems(items, f.Sort)
	return s.ResolveUploaderNames(ctx, paginate(items, f.Limit, f.Offset)), nil
}

// Search matches query against each kind in scope independently.
func (s *Service) Search(ctx context.Context, query string, f SearchFilter) (SearchResult, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	res := SearchResult{Papers: []Listing{}, Notes: []Listing{}}
	for _, kind := range Kinds {
		if (kind == KindPaper && f.Scope == ScopeNotes) || (kind == KindNote && f.Scope == ScopePapers) {
			continue
		}
		items, err := s.Repo.List(ctx, kind, normalizeFilter(Filter{Department: f.Department, Section: f.Section}))
		if err != nil {
			return SearchResult{}, err
		}
		hits := make([]Item, 0, len(items))
		for _, it := range items {
			if matchesQuery(it, query) {
				hits = append(hits, it)
			}
		}
		sortItems(hits, f.Sort)
		listings := s.ResolveUploaderNames(ctx, paginate(hits, limit, 0))
		if kind == KindPaper {
			res.Papers = listings
		} else {
			res.Notes = listings
		}
	}
	return res, nil
}

// IncrementDownloads records one download of the item and then credits the
// downloader. The credit is best effort and never undoes the increment.
func (s *Service) IncrementDownloads(ctx context.Context, kind Kind, id, downloaderID string) (Item, error) {
	item, err := s.Repo.IncrementDownloads(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			telemetry.Warn("content.download_missing", map[string]any{"item_id": id, "kind": string(kind)})
		}
		return Item{}, err
	}
	s.recorder().RecordDownload(string(kind))
	if downloaderID != "" {
		if err := s.Users.AddDownload(ctx, downloaderID); err != nil {
			telemetry.Warn("content.downloader_credit_failed", map[string]any{
				"item_id": id, "user_id": downloaderID, "error": err.Error(),
			})
		}
	}
	return item, nil
}

// Open streams the stored file of an uploaded item.
func (s *Service) Open(ctx context.Context, item Item) (io.ReadCloser, error) {
	if item.StorageKey == "" || s.Objects == nil {
		return nil, ErrNotFound
	}
	return s.Objects.Open(ctx, item.StorageKey)
}

// ResolveUploaderNames joins uploader names with a single batch lookup.
func (s *Service) ResolveUploaderNames(ctx context.Context, items []Item) []Listing {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.UploaderID]; !ok {
			seen[it.UploaderID] = struct{}{}
			ids = append(ids, it.UploaderID)
		}
	}
	names := map[string]string{}
	if len(ids) > 0 && s.Users != nil {
		resolved, err := s.Users.NamesByID(ctx, ids)
		if err != nil {
			telemetry.Warn("content.uploader_lookup_failed", map[string]any{"error": err.Error()})
		} else {
			names = resolved
		}
	}

	out := make([]Listing, 0, len(items))
	for _, it := range items {
		name := names[it.UploaderID]
		if name == "" {
			name = UnknownUploader
		}
		if it.Tags == nil {
			it.Tags = []string{}
		}
		out = append(out, Listing{Item: it, UploaderName: name})
	}
	return out
}

// ByIDs returns the items of kind in ids order. Ids with no stored item are
// skipped.
func (s *Service) ByIDs(ctx context.Context, kind Kind, ids []string) ([]Listing, error) {
	if len(ids) == 0 {
		return []Listing{}, nil
	}
	all, err := s.Repo.List(ctx, kind, Filter{})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Item, len(all))
	for _, it := range all {
		byID[it.ID] = it
	}
	found := make([]Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			found = append(found, it)
		}
	}
	return s.ResolveUploaderNames(ctx, found), nil
}

func (s *Service) CountByDepartment(ctx context.Context, kind Kind) (map[string]int, error) {
	return s.Repo.CountByDepartment(ctx, kind)
}

// DepartmentCounts feeds the department catalog's derived counters.
func (s *Service) DepartmentCounts(ctx context.Context) (map[string]int, map[string]int, error) {
	papers, err := s.CountByDepartment(ctx, KindPaper)
	if err != nil {
		return nil, nil, err
	}
	notes, err := s.CountByDepartment(ctx, KindNote)
	if err != nil {
		return nil, nil, err
	}
	return papers, notes, nil
}
