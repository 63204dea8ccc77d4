package api

import (
	"net/http"
	"testing"

	"chirpnet/media-api/internal/model"
)

func TestMediaDeleteHandler(t *testing.T) {
	a := newTestAPI(t)

	media := seedMedia(t, a.DB, "tester", model.MediaTypeImage)

	rr := doRequest(t, a, "DELETE", "/api/media/"+media.ID, nil, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Status = %d, want 204\n%s", rr.Code, rr.Body.String())
	}

	var n int64
	a.DB.Model(model.MediaFile{}).Where("id = ?", media.ID).Count(&n)
	if n != 0 {
		t.Error("Media row survived the delete")
	}
}

func TestMediaDeleteRefusesMediaInUse(t *testing.T) {
	a := newTestAPI(t)

	media := seedMedia(t, a.DB, "tester", model.MediaTypeImage)
	if err := a.DB.Create(&model.PostAttachment{PostID: 9, MediaFileID: media.ID}).Error; err != nil {
		t.Fatalf("Failed to seed attachment: %v", err)
	}

	rr := doRequest(t, a, "DELETE", "/api/media/"+media.ID, nil, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("Status = %d, want 409\n%s", rr.Code, rr.Body.String())
	}

	var n int64
	a.DB.Model(model.MediaFile{}).Where("id = ?", media.ID).Count(&n)
	if n != 1 {
		t.Error("Media row was deleted despite being in use")
	}
}

func TestMediaDeleteHidesForeignMedia(t *testing.T) {
	a := newTestAPI(t)

	media := seedMedia(t, a.DB, "somebody-else", model.MediaTypeImage)

	rr := doRequest(t, a, "DELETE", "/api/media/"+media.ID, nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rr.Code)
	}

	// Admins can delete anybody's media
	rr = doRequest(t, a, "DELETE", "/api/media/"+media.ID, nil, map[string]string{"X-Test-Admin": "1"})
	if rr.Code != http.StatusNoContent {
		t.Errorf("Admin delete = %d, want 204", rr.Code)
	}
}

func TestMediaDeleteUnknownID(t *testing.T) {
	a := newTestAPI(t)

	rr := doRequest(t, a, "DELETE", "/api/media/no-such-id", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rr.Code)
	}
}
