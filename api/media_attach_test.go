package api

import (
	"net/http"
	"strings"
	"testing"

	"chirpnet/media-api/internal/model"
)

func TestMediaAttachHandler(t *testing.T) {
	a := newTestAPI(t)

	first := seedMedia(t, a.DB, "tester", model.MediaTypeImage)
	second := seedMedia(t, a.DB, "tester", model.MediaTypeImage)

	body := `{"post_id": 77, "media_ids": ["` + first.ID + `", "` + second.ID + `"]}`

	rr := doRequest(t, a, "POST", "/api/media/attach", strings.NewReader(body),
		map[string]string{"Content-Type": "application/json"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\n%s", rr.Code, rr.Body.String())
	}

	var rows []model.PostAttachment
	a.DB.Where("post_id = ?", 77).Order("position asc").Find(&rows)
	if len(rows) != 2 {
		t.Fatalf("Got %d attachments, want 2", len(rows))
	}

	// Request order decides the position
	if rows[0].MediaFileID != first.ID || rows[0].Position != 0 {
		t.Errorf("rows[0] = %s at %d, want %s at 0", rows[0].MediaFileID, rows[0].Position, first.ID)
	}
	if rows[1].MediaFileID != second.ID || rows[1].Position != 1 {
		t.Errorf("rows[1] = %s at %d, want %s at 1", rows[1].MediaFileID, rows[1].Position, second.ID)
	}
}

func TestMediaAttachReplacesSet(t *testing.T) {
	a := newTestAPI(t)

	first := seedMedia(t, a.DB, "tester", model.MediaTypeImage)
	second := seedMedia(t, a.DB, "tester", model.MediaTypeImage)

	attach := func(body string) int {
		rr := doRequest(t, a, "POST", "/api/media/attach", strings.NewReader(body),
			map[string]string{"Content-Type": "application/json"})
		return rr.Code
	}

	if code := attach(`{"post_id": 5, "media_ids": ["` + first.ID + `"]}`); code != http.StatusOK {
		t.Fatalf("First attach = %d, want 200", code)
	}
	if code := attach(`{"post_id": 5, "media_ids": ["` + second.ID + `"]}`); code != http.StatusOK {
		t.Fatalf("Second attach = %d, want 200", code)
	}

	var rows []model.PostAttachment
	a.DB.Where("post_id = ?", 5).Find(&rows)
	if len(rows) != 1 {
		t.Fatalf("Got %d attachments after replace, want 1", len(rows))
	}
	if rows[0].MediaFileID != second.ID {
		t.Errorf("Attachment = %s, want the replacement %s", rows[0].MediaFileID, second.ID)
	}
}

func TestMediaAttachCapsCount(t *testing.T) {
	a := newTestAPI(t)

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = `"` + seedMedia(t, a.DB, "tester", model.MediaTypeImage).ID + `"`
	}

	body := `{"post_id": 3, "media_ids": [` + strings.Join(ids, ",") + `]}`

	rr := doRequest(t, a, "POST", "/api/media/attach", strings.NewReader(body),
		map[string]string{"Content-Type": "application/json"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rr.Code)
	}
}

func TestMediaAttachRejectsForeignMedia(t *testing.T) {
	a := newTestAPI(t)

	foreign := seedMedia(t, a.DB, "somebody-else", model.MediaTypeImage)

	body := `{"post_id": 4, "media_ids": ["` + foreign.ID + `"]}`

	rr := doRequest(t, a, "POST", "/api/media/attach", strings.NewReader(body),
		map[string]string{"Content-Type": "application/json"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rr.Code)
	}

	var n int64
	a.DB.Model(model.PostAttachment{}).Count(&n)
	if n != 0 {
		t.Error("An attachment was created for foreign media")
	}
}

func TestMediaAttachRejectsBadBody(t *testing.T) {
	a := newTestAPI(t)

	for _, body := range []string{
		`{}`,
		`{"post_id": 1}`,
		`{"media_ids": ["x"]}`,
		`not json`,
	} {
		rr := doRequest(t, a, "POST", "/api/media/attach", strings.NewReader(body),
			map[string]string{"Content-Type": "application/json"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Body %q = %d, want 400", body, rr.Code)
		}
	}
}
