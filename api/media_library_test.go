package api

import (
	"net/http"
	"testing"
	"time"

	"chirpnet/media-api/internal/model"
)

func TestMediaLibraryHandler(t *testing.T) {
	a := newTestAPI(t)

	for i := 0; i < 3; i++ {
		seedMedia(t, a.DB, "tester", model.MediaTypeImage)
	}
	for i := 0; i < 2; i++ {
		seedMedia(t, a.DB, "tester", model.MediaTypeVideo)
	}

	// Somebody else's media never shows up
	seedMedia(t, a.DB, "other", model.MediaTypeImage)

	// Unapproved media stays hidden too
	hidden := seedMedia(t, a.DB, "tester", model.MediaTypeImage)
	a.DB.Model(model.MediaFile{}).Where("id = ?", hidden.ID).Update("is_approved", false)

	rr := doRequest(t, a, "GET", "/api/media", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\n%s", rr.Code, rr.Body.String())
	}

	resp := jsonBody(t, rr)
	files, _ := resp["media"].([]any)
	if len(files) != 5 {
		t.Errorf("Got %d media, want 5", len(files))
	}

	pagination, _ := resp["pagination"].(map[string]any)
	if pagination["total"] != float64(5) {
		t.Errorf("total = %v, want 5", pagination["total"])
	}
	if pagination["has_next"] != false {
		t.Errorf("has_next = %v, want false", pagination["has_next"])
	}
}

func TestMediaLibraryTypeFilter(t *testing.T) {
	a := newTestAPI(t)

	seedMedia(t, a.DB, "tester", model.MediaTypeImage)
	seedMedia(t, a.DB, "tester", model.MediaTypeVideo)
	seedMedia(t, a.DB, "tester", model.MediaTypeVideo)

	rr := doRequest(t, a, "GET", "/api/media?type=video", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rr.Code)
	}

	resp := jsonBody(t, rr)
	files, _ := resp["media"].([]any)
	if len(files) != 2 {
		t.Errorf("Got %d media with type=video, want 2", len(files))
	}
}

func TestMediaLibraryPagination(t *testing.T) {
	a := newTestAPI(t)

	base := time.Now().Add(-time.Hour)
	var newest string
	for i := 0; i < 5; i++ {
		media := seedMedia(t, a.DB, "tester", model.MediaTypeImage)
		a.DB.Model(model.MediaFile{}).
			Where("id = ?", media.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute))
		newest = media.ID
	}

	rr := doRequest(t, a, "GET", "/api/media?per_page=2&page=1", nil, nil)
	resp := jsonBody(t, rr)

	files, _ := resp["media"].([]any)
	if len(files) != 2 {
		t.Fatalf("Got %d media on page 1, want 2", len(files))
	}

	// Newest first
	first, _ := files[0].(map[string]any)
	if first["id"] != newest {
		t.Errorf("First item = %v, want the newest %s", first["id"], newest)
	}

	pagination, _ := resp["pagination"].(map[string]any)
	if pagination["has_next"] != true {
		t.Errorf("has_next on page 1 = %v, want true", pagination["has_next"])
	}

	rr = doRequest(t, a, "GET", "/api/media?per_page=2&page=3", nil, nil)
	resp = jsonBody(t, rr)

	files, _ = resp["media"].([]any)
	if len(files) != 1 {
		t.Errorf("Got %d media on page 3, want 1", len(files))
	}

	pagination, _ = resp["pagination"].(map[string]any)
	if pagination["has_next"] != false {
		t.Errorf("has_next on the last page = %v, want false", pagination["has_next"])
	}
}

func TestMediaPopularHandler(t *testing.T) {
	a := newTestAPI(t)

	top := seedMedia(t, a.DB, "u1", model.MediaTypeImage)
	second := seedMedia(t, a.DB, "u2", model.MediaTypeImage)

	rows := []model.MediaAnalytics{
		{MediaFileID: top.ID, TotalShares: 10},
		{MediaFileID: second.ID, TotalViews: 5},
	}
	if err := a.DB.Create(&rows).Error; err != nil {
		t.Fatalf("Failed to seed analytics: %v", err)
	}

	rr := doRequest(t, a, "GET", "/api/media/popular", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\n%s", rr.Code, rr.Body.String())
	}

	resp := jsonBody(t, rr)
	if resp["period_days"] != float64(7) {
		t.Errorf("period_days = %v, want 7", resp["period_days"])
	}

	files, _ := resp["media"].([]any)
	if len(files) != 2 {
		t.Fatalf("Got %d popular media, want 2", len(files))
	}

	first, _ := files[0].(map[string]any)
	if first["id"] != top.ID {
		t.Errorf("Top media = %v, want %s", first["id"], top.ID)
	}

	// The limit is capped, not errored
	rr = doRequest(t, a, "GET", "/api/media/popular?limit=1", nil, nil)
	resp = jsonBody(t, rr)
	files, _ = resp["media"].([]any)
	if len(files) != 1 {
		t.Errorf("Got %d media with limit=1, want 1", len(files))
	}
}
