package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/anonto42/studyhub/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// newTestAPI returns an echo instance whose /api/v1 group authenticates the
// caller from the X-User header.
func newTestAPI() (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.Validator = validators.NewValidator()
	g := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if u := c.Request().Header.Get("X-User"); u != "" {
				c.Set(ContextUserID, u)
			}
			return next(c)
		}
	})
	return e, g
}

func do(e *echo.Echo, method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-User", user)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type fakeReadState struct {
	viewed []string
	read   []string
	count  int64
	err    error
}

func (f *fakeReadState) QuickMarkViewed(ctx context.Context, conversationID, userID string) error {
	f.viewed = append(f.viewed, conversationID+"/"+userID)
	return f.err
}

func (f *fakeReadState) MarkAllRead(ctx context.Context, conversationID, userID string) (int64, error) {
	f.read = append(f.read, conversationID+"/"+userID)
	return f.count, f.err
}

func TestReadStateRoutes(t *testing.T) {
	fake := &fakeReadState{count: 3}
	e, g := newTestAPI()
	NewReadStateHandler(fake).RegisterReadStateRoutes(g)
	conv := primitive.NewObjectID().Hex()

	rec := do(e, http.MethodPut, "/api/v1/conversations/"+conv+"/viewed", "7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, []string{conv + "/7"}, fake.viewed)

	rec = do(e, http.MethodPut, "/api/v1/conversations/"+conv+"/read", "7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"count":3}}`, rec.Body.String())

	body := fmt.Sprintf(`{"conversationId":%q,"userId":"7"}`, conv)
	rec = do(e, http.MethodPost, "/api/v1/messages/mark-read", "7", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, fake.read, 2)

	rec = do(e, http.MethodPost, "/api/v1/messages/mark-viewed", "7", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, fake.viewed, 2)
}

func TestReadStateRoutes_Rejections(t *testing.T) {
	fake := &fakeReadState{}
	e, g := newTestAPI()
	NewReadStateHandler(fake).RegisterReadStateRoutes(g)
	conv := primitive.NewObjectID().Hex()

	rec := do(e, http.MethodPut, "/api/v1/conversations/"+conv+"/viewed", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := fmt.Sprintf(`{"conversationId":%q,"userId":"8"}`, conv)
	rec = do(e, http.MethodPost, "/api/v1/messages/mark-read", "7", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/messages/mark-read", "7", `{"conversationId":"zz","userId":"7"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, fake.read)
	assert.Empty(t, fake.viewed)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", services.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("%w: conversation", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: nope", services.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("%w: twice", services.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: db down", services.ErrInternal), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.want), func(t *testing.T) {
			e, g := newTestAPI()
			NewReadStateHandler(&fakeReadState{err: tc.err}).RegisterReadStateRoutes(g)
			rec := do(e, http.MethodPut, "/api/v1/conversations/"+primitive.NewObjectID().Hex()+"/read", "1", "")
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

type fakeReputation struct {
	awarded []models.AwardPointsRequest
}

func (f *fakeReputation) AwardPoints(ctx context.Context, userID string, points int, reason string) (*models.ReputationHistory, error) {
	f.awarded = append(f.awarded, models.AwardPointsRequest{UserID: userID, Points: points, Reason: reason})
	return &models.ReputationHistory{UserID: userID, Points: points, Reason: reason, Type: models.ReputationEarned}, nil
}

func (f *fakeReputation) RebuildAggregate(ctx context.Context, userID string) (int, error) {
	return 42, nil
}

func (f *fakeReputation) History(ctx context.Context, userID string, page, limit int) ([]models.ReputationHistory, error) {
	return []models.ReputationHistory{}, nil
}

func (f *fakeReputation) Leaderboard(ctx context.Context, limit int) ([]models.UserStats, error) {
	return []models.UserStats{{UserID: "1", Reputation: 9}}, nil
}

func TestReputationRoutes(t *testing.T) {
	fake := &fakeReputation{}
	e, g := newTestAPI()
	NewReputationHandler(fake).RegisterReputationRoutes(g)

	rec := do(e, http.MethodPost, "/api/v1/reputation/award", "1", `{"userId":"2","points":10,"reason":"great answer"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, fake.awarded, 1)
	assert.Equal(t, 10, fake.awarded[0].Points)

	rec = do(e, http.MethodPost, "/api/v1/reputation/award", "1", `{"userId":"1","points":10,"reason":"me"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/reputation/award", "1", `{"userId":"2","points":0,"reason":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, fake.awarded, 1)

	rec = do(e, http.MethodPost, "/api/v1/reputation/rebuild", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"reputation":42}}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/v1/reputation/leaderboard", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			Leaderboard []models.UserStats `json:"leaderboard"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 9, resp.Data.Leaderboard[0].Reputation)
}

type fakeLikes struct {
	calls []models.LikeRequest
}

func (f *fakeLikes) Like(ctx context.Context, userID string, req models.LikeRequest) (*services.LikeStatus, error) {
	f.calls = append(f.calls, req)
	return &services.LikeStatus{ParentType: req.ParentType, ParentID: req.ParentID, Liked: true, Count: 1}, nil
}

func (f *fakeLikes) Unlike(ctx context.Context, userID string, req models.LikeRequest) (*services.LikeStatus, error) {
	f.calls = append(f.calls, req)
	return &services.LikeStatus{ParentType: req.ParentType, ParentID: req.ParentID}, nil
}

func (f *fakeLikes) Status(ctx context.Context, userID string, kind models.ParentType, parentID string) (*services.LikeStatus, error) {
	return &services.LikeStatus{ParentType: kind, ParentID: parentID}, nil
}

func TestLikeRoutes(t *testing.T) {
	fake := &fakeLikes{}
	e, g := newTestAPI()
	NewLikeHandler(fake).RegisterLikeRoutes(g)
	id := primitive.NewObjectID().Hex()

	rec := do(e, http.MethodPost, "/api/v1/likes/blog_post/"+id, "1", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, models.ParentBlogPost, fake.calls[0].ParentType)

	rec = do(e, http.MethodPost, "/api/v1/likes/comment/"+id, "1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodDelete, "/api/v1/likes/post/not-an-id", "1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, fake.calls, 1)
}

type fakeNotifications struct {
	markedID uint
}

func (f *fakeNotifications) List(ctx context.Context, userID string, page, limit int) ([]models.Notification, int64, error) {
	return []models.Notification{{ID: 1, UserID: userID}}, 41, nil
}

func (f *fakeNotifications) Grouped(ctx context.Context, userID string) (*models.GroupedNotifications, error) {
	return &models.GroupedNotifications{}, nil
}

func (f *fakeNotifications) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return 5, nil
}

func (f *fakeNotifications) MarkAsRead(ctx context.Context, id uint, userID string) error {
	f.markedID = id
	return nil
}

func (f *fakeNotifications) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	return 5, nil
}

func (f *fakeNotifications) ClearAll(ctx context.Context, userID string) (int64, error) {
	return 6, nil
}

func TestNotificationRoutes(t *testing.T) {
	fake := &fakeNotifications{}
	e, g := newTestAPI()
	NewNotificationHandler(fake).RegisterNotificationRoutes(g)

	rec := do(e, http.MethodGet, "/api/v1/notifications?page=2&limit=20", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Meta struct {
			TotalPages  int  `json:"totalPages"`
			HasNextPage bool `json:"hasNextPage"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.True(t, resp.Meta.HasNextPage)

	rec = do(e, http.MethodPut, "/api/v1/notifications/12/read", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(12), fake.markedID)

	rec = do(e, http.MethodPut, "/api/v1/notifications/abc/read", "1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodDelete, "/api/v1/notifications", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"count":6}}`, rec.Body.String())
}
