package integrity

import (
	"net/http/httptest"
	"testing"
	"time"

	"price-pipeline/core/storage/mocks"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, withDB bool) (*fiber.App, *mocks.Client) {
	app := fiber.New()
	mockClient := new(mocks.Client)
	svc := newService(mockClient, nil)
	if withDB {
		svc = newService(mockClient, setupDB(t))
	}
	feature := NewFeature(svc)
	assert.Equal(t, "integrity", feature.Name())
	assert.True(t, feature.IsEnabled())
	require.NoError(t, feature.Load(app))
	return app, mockClient
}

func TestHandleLayoutCheck(t *testing.T) {
	app, mockClient := setupTestApp(t, false)
	mockClient.On("BucketExists", mock.Anything, "prices").Return(true, nil)
	mockClient.On("ListObjects", mock.Anything, "prices", mock.Anything).Return(objects())
	mockClient.On("PutObject", mock.Anything, "prices", mock.Anything, mock.Anything, int64(0), mock.Anything).Return(minio.UploadInfo{}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/integrity/layout", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "checked", body["status"])
	assert.Len(t, body["missing"], 3)
	mockClient.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	resp, err = app.Test(httptest.NewRequest("GET", "/integrity/layout?fix=true", nil))
	require.NoError(t, err)
	body = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "fixed", body["status"])
}

func TestHandleLayoutCheck_Error(t *testing.T) {
	app, mockClient := setupTestApp(t, false)
	mockClient.On("BucketExists", mock.Anything, "prices").Return(false, assert.AnError)

	resp, err := app.Test(httptest.NewRequest("GET", "/integrity/layout", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestHandleBacklogCheck(t *testing.T) {
	app, mockClient := setupTestApp(t, false)
	mockClient.On("ListObjects", mock.Anything, "prices", mock.Anything).Return(objects(
		minio.ObjectInfo{Key: "pending/acme/a.json", LastModified: now.Add(-40 * time.Minute)},
	))

	resp, err := app.Test(httptest.NewRequest("GET", "/integrity/backlog?olderThan=1h", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(1), body["pending"])
	assert.Empty(t, body["stale"])

	resp, err = app.Test(httptest.NewRequest("GET", "/integrity/backlog", nil))
	require.NoError(t, err)
	body = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body["stale"], 1)

	resp, err = app.Test(httptest.NewRequest("GET", "/integrity/backlog?olderThan=soon", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandleSchemaCheck(t *testing.T) {
	app, _ := setupTestApp(t, true)

	resp, err := app.Test(httptest.NewRequest("GET", "/integrity/schema", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["matched"])

	app, _ = setupTestApp(t, false)
	resp, err = app.Test(httptest.NewRequest("GET", "/integrity/schema", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestHandleIntegrityCheck(t *testing.T) {
	app, mockClient := setupTestApp(t, true)
	healthyBucket(mockClient)

	resp, err := app.Test(httptest.NewRequest("GET", "/integrity", nil), 2000)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["layout"]["status"])
	assert.Equal(t, "ok", body["backlog"]["status"])
	assert.Equal(t, "ok", body["schema"]["status"])
}
