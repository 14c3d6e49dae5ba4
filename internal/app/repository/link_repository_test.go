package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sifan077/shortlink/internal/app/model"
)

func TestLinkRepository_CreateDuplicateSlug(t *testing.T) {
	repo := NewLinkRepository(newTestDB(t))
	ctx := context.Background()

	createLink(t, repo, "abc123")
	err := repo.Create(ctx, &model.Link{Slug: "abc123", OriginalURL: "https://other.example.com"})
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}

	got, err := repo.GetBySlug(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetBySlug error: %v", err)
	}
	if got.OriginalURL != "https://example.com/abc123" {
		t.Fatalf("original link overwritten: %s", got.OriginalURL)
	}
}

func TestLinkRepository_Lookups(t *testing.T) {
	repo := NewLinkRepository(newTestDB(t))
	ctx := context.Background()
	link := createLink(t, repo, "find01")

	if link.ID == 0 || link.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be set: %+v", link)
	}

	byID, err := repo.GetByID(ctx, link.ID)
	if err != nil || byID.Slug != "find01" {
		t.Fatalf("GetByID: %+v, %v", byID, err)
	}
	locked, err := repo.GetByIDForUpdate(ctx, link.ID)
	if err != nil || locked.Slug != "find01" {
		t.Fatalf("GetByIDForUpdate: %+v, %v", locked, err)
	}

	if _, err := repo.GetBySlug(ctx, "nope"); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound by slug, got %v", err)
	}
	if _, err := repo.GetByID(ctx, 4242); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound by id, got %v", err)
	}

	exists, err := repo.SlugExists(ctx, "find01")
	if err != nil || !exists {
		t.Fatalf("SlugExists(find01) = %v, %v", exists, err)
	}
	exists, err = repo.SlugExists(ctx, "nope")
	if err != nil || exists {
		t.Fatalf("SlugExists(nope) = %v, %v", exists, err)
	}
}

func TestLinkRepository_ListNewestFirst(t *testing.T) {
	repo := NewLinkRepository(newTestDB(t))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		createLink(t, repo, fmt.Sprintf("list%02d", i))
	}

	page, err := repo.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(page) != 2 || page[0].Slug != "list03" || page[1].Slug != "list02" {
		t.Fatalf("unexpected page: %+v", page)
	}

	defaults, err := repo.List(ctx, 0, -3)
	if err != nil {
		t.Fatalf("List with defaults error: %v", err)
	}
	if len(defaults) != 5 || defaults[0].Slug != "list04" {
		t.Fatalf("unexpected default page: %+v", defaults)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	if len(all) != 5 || all[4].Slug != "list00" {
		t.Fatalf("unexpected ListAll order: %+v", all)
	}
}

func TestLinkRepository_ClickCounters(t *testing.T) {
	repo := NewLinkRepository(newTestDB(t))
	ctx := context.Background()
	link := createLink(t, repo, "count1")

	for want := int64(1); want <= 3; want++ {
		got, err := repo.IncrementClickCount(ctx, link.ID)
		if err != nil {
			t.Fatalf("IncrementClickCount error: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
	if _, err := repo.IncrementClickCount(ctx, 9999); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}

	if err := repo.UpdateClickCount(ctx, link, 10); err != nil {
		t.Fatalf("UpdateClickCount error: %v", err)
	}
	if link.ClickCount != 10 {
		t.Fatalf("expected link struct to carry 10, got %d", link.ClickCount)
	}
	stored, err := repo.GetBySlug(ctx, "count1")
	if err != nil {
		t.Fatalf("GetBySlug error: %v", err)
	}
	if stored.ClickCount != 10 {
		t.Fatalf("expected stored 10, got %d", stored.ClickCount)
	}

	if err := repo.UpdateClickCount(ctx, &model.Link{ID: 9999}, 1); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}
