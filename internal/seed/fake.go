package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/bxcodec/faker/v4"
	"github.com/google/uuid"

	"papershare-backend/internal/content"
	"papershare-backend/internal/departments"
	"papershare-backend/internal/shared/auth"
	"papershare-backend/internal/users"
)

// FakeOptions tunes Fake. Zero values pick sensible defaults.
type FakeOptions struct {
	Users        int
	ItemsPerUser int
	Rand         *rand.Rand
	Now          time.Time
}

// Fake inserts randomly generated users, each with a few papers and notes.
// Every fake user logs in with DemoPassword.
func Fake(ctx context.Context, userRepo users.Repo, contentRepo content.Repo, opts FakeOptions) (int, error) {
	if opts.Users <= 0 {
		return 0, nil
	}
	if opts.ItemsPerUser <= 0 {
		opts.ItemsPerUser = 3
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return 0, fmt.Errorf("hash demo password: %w", err)
	}
	depts := departments.All()
	sections := []string{"UG", "PG"}

	created := 0
	for i := 0; i < opts.Users; i++ {
		id := uuid.NewString()
		dept := depts[rng.Intn(len(depts))]
		section := sections[rng.Intn(len(sections))]
		items := rng.Intn(opts.ItemsPerUser) + 1

		u := users.User{
			ID:             id,
			Email:          fmt.Sprintf("%s.%s", id[:8], strings.ToLower(faker.Email())),
			Name:           faker.Name(),
			Department:     dept.ID,
			Section:        section,
			UploadsCount:   items,
			DownloadsCount: rng.Intn(50),
			PasswordHash:   hash,
			Provider:       users.ProviderPassword,
			Version:        1,
			CreatedAt:      now.Add(-time.Duration(rng.Intn(365*24)) * time.Hour),
		}
		if err := userRepo.Create(ctx, u); err != nil {
			return created, fmt.Errorf("create fake user: %w", err)
		}
		created++

		for j := 0; j < items; j++ {
			kind := content.Kinds[rng.Intn(len(content.Kinds))]
			subject := fmt.Sprintf("%s%d", strings.ToUpper(dept.ID[:3]), 100+rng.Intn(400))
			year := ""
			if kind == content.KindPaper {
				year = fmt.Sprint(2018 + rng.Intn(6))
			}
			tags := []string{section}
			if year != "" {
				tags = append(tags, year)
			}
			it := content.Item{
				ID:          uuid.NewString(),
				Kind:        kind,
				Title:       strings.TrimSuffix(faker.Sentence(), "."),
				Subject:     subject,
				Department:  dept.ID,
				Section:     section,
				Year:        year,
				Tags:        append(tags, subject),
				Description: faker.Paragraph(),
				UploaderID:  id,
				Downloads:   rng.Intn(300),
				CreatedAt:   u.CreatedAt.Add(time.Duration(j+1) * time.Hour),
			}
			if err := contentRepo.Create(ctx, it); err != nil {
				return created, fmt.Errorf("create fake %s: %w", kind, err)
			}
		}
	}
	return created, nil
}
