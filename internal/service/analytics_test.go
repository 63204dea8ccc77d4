package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"chirpnet/media-api/internal/model"

	"gorm.io/gorm"
)

func analyticsForTest(t *testing.T) (*Analytics, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	a := NewAnalytics(db)
	t.Cleanup(a.Close)

	return a, db
}

func TestViewerKey(t *testing.T) {
	if got := ViewerKey("alice", "1.2.3.4"); got != "u:alice" {
		t.Errorf("ViewerKey with user = %q, want u:alice", got)
	}

	anon := ViewerKey("", "1.2.3.4")
	if !strings.HasPrefix(anon, "a:") {
		t.Errorf("Anonymous key = %q, want a: prefix", anon)
	}
	if strings.Contains(anon, "1.2.3.4") {
		t.Error("Anonymous key leaks the raw address")
	}

	if again := ViewerKey("", "1.2.3.4"); again != anon {
		t.Error("Same address produced different keys")
	}
	if other := ViewerKey("", "5.6.7.8"); other == anon {
		t.Error("Different addresses produced the same key")
	}
}

func TestTrackViewDedupesUniques(t *testing.T) {
	a, _ := analyticsForTest(t)
	media := seedMedia(t, a.DB, "u1", model.MediaTypeImage)

	for _, viewer := range []string{"u:alice", "u:alice", "u:bob"} {
		if err := a.TrackView(media.ID, viewer); err != nil {
			t.Fatalf("TrackView failed: %v", err)
		}
	}

	stats, err := a.Stats(media.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.TotalViews != 3 {
		t.Errorf("TotalViews = %d, want 3", stats.TotalViews)
	}
	if stats.UniqueViews != 2 {
		t.Errorf("UniqueViews = %d, want 2", stats.UniqueViews)
	}
}

func TestTrackViewScopesDedupePerMedia(t *testing.T) {
	a, _ := analyticsForTest(t)
	first := seedMedia(t, a.DB, "u1", model.MediaTypeImage)
	second := seedMedia(t, a.DB, "u1", model.MediaTypeImage)

	a.TrackView(first.ID, "u:alice")
	a.TrackView(second.ID, "u:alice")

	for _, media := range []*model.MediaFile{first, second} {
		stats, err := a.Stats(media.ID)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.UniqueViews != 1 {
			t.Errorf("UniqueViews for %s = %d, want 1", media.ID, stats.UniqueViews)
		}
	}
}

func TestTrackInteraction(t *testing.T) {
	a, _ := analyticsForTest(t)
	media := seedMedia(t, a.DB, "u1", model.MediaTypeImage)

	for _, kind := range []string{InteractionLike, InteractionShare, InteractionShare, InteractionDownload} {
		if err := a.TrackInteraction(media.ID, kind); err != nil {
			t.Fatalf("TrackInteraction(%s) failed: %v", kind, err)
		}
	}

	stats, _ := a.Stats(media.ID)
	if stats.TotalLikes != 1 || stats.TotalShares != 2 || stats.TotalDownloads != 1 {
		t.Errorf("Counters = %d likes %d shares %d downloads, want 1/2/1",
			stats.TotalLikes, stats.TotalShares, stats.TotalDownloads)
	}

	if err := a.TrackInteraction(media.ID, "boost"); !errors.Is(err, ErrUnknownInteraction) {
		t.Errorf("TrackInteraction(boost) = %v, want ErrUnknownInteraction", err)
	}
}

func TestLikeCounterClampsAtZero(t *testing.T) {
	a, _ := analyticsForTest(t)
	media := seedMedia(t, a.DB, "u1", model.MediaTypeImage)

	// An unlike on a fresh counter must not go negative
	if err := a.OnLikeDeleted(media.ID); err != nil {
		t.Fatalf("OnLikeDeleted failed: %v", err)
	}

	stats, _ := a.Stats(media.ID)
	if stats.TotalLikes != 0 {
		t.Errorf("TotalLikes = %d, want 0", stats.TotalLikes)
	}

	a.OnLikeCreated(media.ID)
	a.OnLikeDeleted(media.ID)
	a.OnLikeDeleted(media.ID)

	stats, _ = a.Stats(media.ID)
	if stats.TotalLikes != 0 {
		t.Errorf("TotalLikes after create and two deletes = %d, want 0", stats.TotalLikes)
	}
}

func TestStatsZeroValueWithoutRow(t *testing.T) {
	a, _ := analyticsForTest(t)

	stats, err := a.Stats("never-tracked")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.MediaFileID != "never-tracked" {
		t.Errorf("MediaFileID = %q, want never-tracked", stats.MediaFileID)
	}
	if stats.TotalViews != 0 || stats.TotalLikes != 0 {
		t.Errorf("Fresh stats not zero valued: %+v", stats)
	}
}

func TestPopularScoringAndWindow(t *testing.T) {
	a, db := analyticsForTest(t)

	viewed := seedMedia(t, db, "u1", model.MediaTypeImage)   // score 10
	liked := seedMedia(t, db, "u1", model.MediaTypeImage)    // score 20
	shared := seedMedia(t, db, "u1", model.MediaTypeImage)   // score 30
	ancient := seedMedia(t, db, "u1", model.MediaTypeImage)  // big score, too old
	untracked := seedMedia(t, db, "u1", model.MediaTypeImage)

	rows := []model.MediaAnalytics{
		{MediaFileID: viewed.ID, TotalViews: 10},
		{MediaFileID: liked.ID, TotalLikes: 10},
		{MediaFileID: shared.ID, TotalShares: 10},
		{MediaFileID: ancient.ID, TotalViews: 1000},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("Failed to seed analytics: %v", err)
	}

	backdate(t, db, model.MediaFile{}, ancient.ID, time.Now().AddDate(0, 0, -10))

	popular, err := a.Popular(10, 7)
	if err != nil {
		t.Fatalf("Popular failed: %v", err)
	}

	if len(popular) != 3 {
		t.Fatalf("Got %d popular media, want 3", len(popular))
	}

	expected := []string{shared.ID, liked.ID, viewed.ID}
	for i, want := range expected {
		if popular[i].ID != want {
			t.Errorf("popular[%d] = %s, want %s", i, popular[i].ID, want)
		}
	}

	for _, media := range popular {
		if media.ID == untracked.ID {
			t.Error("Media without any tracked event placed in popular")
		}
	}

	// The limit caps the result
	capped, err := a.Popular(2, 7)
	if err != nil {
		t.Fatalf("Popular failed: %v", err)
	}
	if len(capped) != 2 {
		t.Errorf("Got %d popular media with limit 2, want 2", len(capped))
	}
}
