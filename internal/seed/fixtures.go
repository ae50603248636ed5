package seed

import (
	"time"

	"papershare-backend/internal/content"
	"papershare-backend/internal/users"
)

// DemoPassword is the password of every fixture user.
const DemoPassword = "papershare"

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

// Users returns the fixture accounts. passwordHash is shared by all of them.
func Users(passwordHash string) []users.User {
	return []users.User{
		{
			ID:                 "1",
			Email:              "john@example.com",
			Name:               "John Doe",
			Department:         "computational",
			Section:            "UG",
			UploadsCount:       15,
			DownloadsCount:     45,
			StarredDepartments: []string{"computational", "business"},
			StarredPapers:      []string{"1", "3"},
			StarredNotes:       []string{"2", "4"},
			PasswordHash:       passwordHash,
			Provider:           users.ProviderPassword,
			Version:            1,
			CreatedAt:          day("2024-01-15"),
		},
		{
			ID:                 "2",
			Email:              "jane@example.com",
			Name:               "Jane Smith",
			Department:         "business",
			Section:            "PG",
			UploadsCount:       22,
			DownloadsCount:     38,
			StarredDepartments: []string{"business", "commerce"},
			StarredPapers:      []string{"2", "4"},
			StarredNotes:       []string{"1", "3"},
			PasswordHash:       passwordHash,
			Provider:           users.ProviderPassword,
			Version:            1,
			CreatedAt:          day("2024-02-10"),
		},
	}
}

func item(kind content.Kind, id, title, subject, dept, section, year, uploader, date string, downloads int, desc string) content.Item {
	tags := []string{section}
	if year != "" {
		tags = append(tags, year)
	}
	tags = append(tags, subject)
	return content.Item{
		ID:          id,
		Kind:        kind,
		Title:       title,
		Subject:     subject,
		Department:  dept,
		Section:     section,
		Year:        year,
		Tags:        tags,
		Description: desc,
		UploaderID:  uploader,
		Downloads:   downloads,
		CreatedAt:   day(date),
	}
}

func Papers() []content.Item {
	return []content.Item{
		item(content.KindPaper, "1", "Data Structures and Algorithms Final Exam", "CS301", "computational", "UG", "2023", "1", "2024-03-15", 125, "Semester 6 final examination paper"),
		item(content.KindPaper, "2", "Strategic Management Mid-term", "MBA502", "business", "PG", "2023", "2", "2024-03-10", 89, "Mid-semester examination"),
		item(content.KindPaper, "3", "Financial Accounting Question Paper", "ACC201", "commerce", "UG", "2023", "1", "2024-03-08", 156, "Annual examination paper"),
	}
}

func Notes() []content.Item {
	return []content.Item{
		item(content.KindNote, "1", "Complete Notes on Machine Learning", "CS401", "computational", "UG", "", "2", "2024-03-12", 234, "Comprehensive notes covering all topics"),
		item(content.KindNote, "2", "Marketing Management Study Notes", "MBA301", "business", "PG", "", "1", "2024-03-14", 178, "Chapter-wise summary notes"),
		item(content.KindNote, "3", "Organic Chemistry Lab Manual", "BIO202", "biological", "UG", "", "2", "2024-03-11", 145, "Complete lab procedures and observations"),
	}
}
