package feedback

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"firetrack-site/internal/domain/feedback"
	"firetrack-site/internal/testutil"
)

func setup(t *testing.T) (*gin.Engine, *feedback.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := feedback.NewStore(testutil.OpenDB(t))
	h := &Handler{Store: store, Log: zap.NewNop()}

	r := gin.New()
	api := r.Group("/api")
	api.GET("/feature-requests", h.ListRequests)
	api.POST("/feature-requests", h.CreateRequest)
	api.POST("/feature-requests/:id/vote", h.Vote)
	api.GET("/feature-votes/count", h.VoteCount)
	r.PATCH("/admin/feature-requests/:id", h.UpdateStatus)
	return r, store
}

func call(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createRequest(t *testing.T, r *gin.Engine, title string) uint {
	t.Helper()
	w := call(r, http.MethodPost, "/api/feature-requests", `{"title":"`+title+`","description":"d"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var fr feedback.FeatureRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fr))
	return fr.ID
}

func TestVote_FifthVoteIsRejected(t *testing.T) {
	r, _ := setup(t)

	var ids []uint
	for i := 0; i < 5; i++ {
		ids = append(ids, createRequest(t, r, fmt.Sprintf("Request %d", i)))
	}
	for _, id := range ids[:4] {
		w := call(r, http.MethodPost, fmt.Sprintf("/api/feature-requests/%d/vote", id), `{"email":"Voter@Example.com "}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := call(r, http.MethodPost, fmt.Sprintf("/api/feature-requests/%d/vote", ids[4]), `{"email":"voter@example.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "vote limit")

	w = call(r, http.MethodGet, "/api/feature-votes/count?email=voter@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":4,"max":4,"remaining":0}`, w.Body.String())
}

func TestVote_DuplicateAndNotFound(t *testing.T) {
	r, _ := setup(t)
	id := createRequest(t, r, "Offline mode")
	path := fmt.Sprintf("/api/feature-requests/%d/vote", id)

	require.Equal(t, http.StatusOK, call(r, http.MethodPost, path, `{"email":"a@example.com"}`).Code)
	assert.Equal(t, http.StatusConflict, call(r, http.MethodPost, path, `{"email":"a@example.com"}`).Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPost, "/api/feature-requests/999/vote", `{"email":"a@example.com"}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, path, `{"email":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/api/feature-requests/x/vote", `{"email":"a@example.com"}`).Code)
}

func TestListRequests_OrderAndVoted(t *testing.T) {
	r, _ := setup(t)
	first := createRequest(t, r, "Barcode scanning")
	second := createRequest(t, r, "Dark mode")
	require.Equal(t, http.StatusOK, call(r, http.MethodPost, fmt.Sprintf("/api/feature-requests/%d/vote", second), `{"email":"b@example.com"}`).Code)

	w := call(r, http.MethodGet, "/api/feature-requests?email=b@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Requests []feedback.FeatureRequest `json:"requests"`
		Voted    []uint                    `json:"voted"`
		MaxVotes int                       `json:"max_votes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Requests, 2)
	assert.Equal(t, second, out.Requests[0].ID)
	assert.Equal(t, 1, out.Requests[0].VotesCount)
	assert.Equal(t, first, out.Requests[1].ID)
	assert.Equal(t, []uint{second}, out.Voted)
	assert.Equal(t, 4, out.MaxVotes)

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/api/feature-requests?status=bogus", "").Code)
}

func TestCreateRequest_Validation(t *testing.T) {
	r, _ := setup(t)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/api/feature-requests", `{"description":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/api/feature-requests", `{"title":"x","email":"bad"}`).Code)
}

func TestUpdateStatus(t *testing.T) {
	r, _ := setup(t)
	id := createRequest(t, r, "Exports")

	w := call(r, http.MethodPatch, fmt.Sprintf("/admin/feature-requests/%d", id), `{"status":"planned"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/api/feature-requests?status=planned", "")
	assert.Contains(t, w.Body.String(), "Exports")

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPatch, fmt.Sprintf("/admin/feature-requests/%d", id), `{"status":"done"}`).Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPatch, "/admin/feature-requests/999", `{"status":"planned"}`).Code)
}
