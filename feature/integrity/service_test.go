package integrity

import (
	"context"
	"testing"
	"time"

	"price-pipeline/core/database"
	"price-pipeline/core/storage"
	"price-pipeline/core/storage/mocks"
	"price-pipeline/feature/integrity/checks"
	"price-pipeline/feature/ledger"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var storageCfg = storage.Config{
	Bucket:            "prices",
	PendingPrefix:     "pending",
	ProcessedPrefix:   "processed",
	UnprocessedPrefix: "unprocessed",
}

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func objects(infos ...minio.ObjectInfo) func(context.Context, string, minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return func(context.Context, string, minio.ListObjectsOptions) <-chan minio.ObjectInfo {
		ch := make(chan minio.ObjectInfo, len(infos))
		for _, o := range infos {
			ch <- o
		}
		close(ch)
		return ch
	}
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, &ledger.ProcessedFileRecord{}))
	return db
}

func newService(client storage.Client, db *gorm.DB) *Service {
	svc := NewService(client, storageCfg, Config{BacklogAge: 15 * time.Minute}, db, []any{&ledger.ProcessedFileRecord{}}, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

// healthyBucket lists one marker per prefix and one fresh pending file.
func healthyBucket(client *mocks.Client) {
	client.On("BucketExists", mock.Anything, "prices").Return(true, nil)
	client.On("ListObjects", mock.Anything, "prices", mock.MatchedBy(func(o minio.ListObjectsOptions) bool {
		return o.Recursive
	})).Return(objects(minio.ObjectInfo{Key: "pending/acme/a.json", LastModified: now.Add(-time.Minute)}))
	client.On("ListObjects", mock.Anything, "prices", mock.Anything).Return(objects(minio.ObjectInfo{Key: "marker/"}))
}

func TestService_Layout(t *testing.T) {
	mockClient := new(mocks.Client)
	svc := newService(mockClient, nil)

	mockClient.On("BucketExists", mock.Anything, "prices").Return(true, nil)
	mockClient.On("ListObjects", mock.Anything, "prices", mock.Anything).Return(objects())
	mockClient.On("PutObject", mock.Anything, "prices", mock.Anything, mock.Anything, int64(0), mock.Anything).Return(minio.UploadInfo{}, nil)

	missing, err := svc.CheckLayout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pending", "processed", "unprocessed"}, missing)

	require.NoError(t, svc.FixLayout(context.Background(), missing))
	mockClient.AssertNumberOfCalls(t, "PutObject", 3)
}

func TestService_BacklogDefaultAge(t *testing.T) {
	mockClient := new(mocks.Client)
	svc := newService(mockClient, nil)
	mockClient.On("ListObjects", mock.Anything, "prices", mock.Anything).Return(objects(
		minio.ObjectInfo{Key: "pending/acme/a.json", LastModified: now.Add(-20 * time.Minute)},
		minio.ObjectInfo{Key: "pending/acme/b.json", LastModified: now.Add(-10 * time.Minute)},
	))

	report, err := svc.CheckBacklog(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"pending/acme/a.json"}, report.Stale)

	report, err = svc.CheckBacklog(context.Background(), 5*time.Minute)
	require.NoError(t, err)
	assert.Len(t, report.Stale, 2)
}

func TestService_RunHealthy(t *testing.T) {
	mockClient := new(mocks.Client)
	healthyBucket(mockClient)
	svc := newService(mockClient, setupDB(t))

	report := svc.Run(context.Background())
	assert.Equal(t, "ok", report.Layout.Status)
	assert.Equal(t, "ok", report.Backlog.Status)
	assert.Equal(t, "ok", report.Schema.Status)
	assert.True(t, report.Schema.Result.(*checks.SchemaReport).Matched)
	assert.True(t, report.Healthy())
}

func TestService_RunFailures(t *testing.T) {
	mockClient := new(mocks.Client)
	mockClient.On("BucketExists", mock.Anything, "prices").Return(false, assert.AnError)
	mockClient.On("ListObjects", mock.Anything, "prices", mock.Anything).Return(objects(
		minio.ObjectInfo{Key: "pending/acme/a.json", LastModified: now.Add(-time.Hour)},
	))
	svc := newService(mockClient, nil)

	report := svc.Run(context.Background())
	assert.Equal(t, "error", report.Layout.Status)
	assert.Contains(t, report.Layout.Error, "bucket existence")
	assert.Equal(t, "ok", report.Backlog.Status)
	assert.Empty(t, report.Schema.Status, "schema skipped without a database")
	assert.False(t, report.Healthy())
}
