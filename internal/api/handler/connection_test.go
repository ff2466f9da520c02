package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"radargo/backend/internal/api/handler"
	"radargo/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// notesStore stubs only the notes-update path; the embedded interface leaves
// everything else unimplemented.
type notesStore struct {
	storage.Storage

	gotID        string
	gotInitiator string
	gotNotes     string
	found        bool
	err          error
}

func (s *notesStore) UpdateConnectionNotes(id, initiatorID, notes string) (bool, error) {
	s.gotID = id
	s.gotInitiator = initiatorID
	s.gotNotes = notes
	return s.found, s.err
}

func notesRouter(store *notesStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewHandler(nil, nil, nil, nil, store)
	r := gin.New()
	r.PATCH("/connections/:id/notes", h.UpdateConnectionNotes)
	return r
}

func TestUpdateConnectionNotes(t *testing.T) {
	store := &notesStore{found: true}
	r := notesRouter(store)

	body := `{"initiator_id":"p1","notes":"met at the meetup, ask about trail runs"}`
	req := httptest.NewRequest(http.MethodPatch, "/connections/s1/notes", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "s1", store.gotID)
	assert.Equal(t, "p1", store.gotInitiator)
	assert.Equal(t, "met at the meetup, ask about trail runs", store.gotNotes)
}

func TestUpdateConnectionNotes_UnknownConnection(t *testing.T) {
	store := &notesStore{found: false}
	r := notesRouter(store)

	body := `{"initiator_id":"p1","notes":"whatever"}`
	req := httptest.NewRequest(http.MethodPatch, "/connections/nope/notes", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateConnectionNotes_MissingInitiator(t *testing.T) {
	store := &notesStore{found: true}
	r := notesRouter(store)

	req := httptest.NewRequest(http.MethodPatch, "/connections/s1/notes", strings.NewReader(`{"notes":"x"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.gotID)
}
