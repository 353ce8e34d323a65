package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"price-pipeline/core/database"
	"price-pipeline/core/errs"
	"price-pipeline/core/storage"
	"price-pipeline/core/storage/mocks"
	"price-pipeline/feature/ledger"
	"price-pipeline/feature/publisher"
	"price-pipeline/feature/sellers"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const bucket = "price-lists"

const acmeFile = `{
  "metadata": {"company": "ACME", "fileProcessedAt": "2024-03-01T10:00:00Z"},
  "items": [
    {"productId": "P1", "productName": "Widget", "price": 10.50, "currency": "EUR", "stockQuantity": 3},
    {"productId": "P2", "productName": "Gadget", "price": 5, "currency": "EUR", "stockQuantity": 0}
  ]
}`

const partialFile = `{
  "metadata": {"company": "acme", "fileProcessedAt": "2024-03-01T10:00:00Z"},
  "items": [
    {"productId": "P1", "productName": "Widget", "price": 10.50, "currency": "EUR", "stockQuantity": 3},
    {"productId": "", "productName": "Nameless", "price": 1, "currency": "EUR", "stockQuantity": 1}
  ]
}`

const invalidItemsFile = `{
  "metadata": {"company": "acme", "fileProcessedAt": "2024-03-01T10:00:00Z"},
  "items": [{"productId": "P1", "productName": "Widget", "price": -1, "currency": "EUR", "stockQuantity": 1}]
}`

const globexFile = `{"metadata": {"company": "globex"}, "items": []}`

const noItemsFile = `{"metadata": {"company": "acme", "fileProcessedAt": "2024-03-01T10:00:00Z"}}`

type fakeSellers map[string]bool

func (f fakeSellers) Resolve(ctx context.Context, folder string) (sellers.Seller, error) {
	active, ok := f[sellers.NormalizeFolder(folder)]
	if !ok {
		return sellers.Seller{}, sellers.ErrUnknownSeller
	}
	s := sellers.Seller{FolderName: folder, Active: active}
	if !active {
		return s, sellers.ErrInactiveSeller
	}
	return s, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	requests []publisher.BatchRequest
	failIDs  map[string]bool
	err      error
}

func (f *fakePublisher) PublishBatch(ctx context.Context, req publisher.BatchRequest) (publisher.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	res := publisher.BatchResult{BatchID: req.BatchID}
	if f.err != nil {
		res.Failed = len(req.Items)
		return res, f.err
	}
	for _, item := range req.Items {
		if f.failIDs[item.ProductID] {
			res.Failed++
			res.Errors = append(res.Errors, "item "+item.ProductID+": broker down")
			continue
		}
		res.Published++
	}
	return res, nil
}

type fixture struct {
	client *mocks.Client
	repo   *ledger.Repository
	pub    *fakePublisher
	orch   *Orchestrator
	moves  map[string]string
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, &ledger.ProcessedFileRecord{}))

	f := &fixture{
		client: new(mocks.Client),
		repo:   ledger.NewRepository(db),
		pub:    &fakePublisher{},
		moves:  make(map[string]string),
	}
	for key, content := range files {
		content := content
		f.client.On("GetObject", mock.Anything, bucket, key, mock.Anything).
			Return(func() io.ReadCloser { return io.NopCloser(strings.NewReader(content)) }, nil)
	}
	f.client.On("CopyObject", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			dst := args.Get(1).(minio.CopyDestOptions)
			src := args.Get(2).(minio.CopySrcOptions)
			f.moves[src.Object] = dst.Object
		}).
		Return(minio.UploadInfo{}, nil)
	f.client.On("RemoveObject", mock.Anything, bucket, mock.Anything, mock.Anything).Return(nil)

	layout := Layout{Pending: "pending", Processed: "processed", Unprocessed: "unprocessed"}
	f.orch = NewOrchestrator(storage.NewObjectStore(f.client, bucket), layout, f.repo,
		fakeSellers{"acme": true, "globex": true, "initech": false}, f.pub, nil, nil)
	return f
}

func (f *fixture) rows(t *testing.T, key string) []ledger.ProcessedFileRecord {
	t.Helper()
	rows, err := f.repo.Find(context.Background(), ledger.Filter{})
	require.NoError(t, err)
	var out []ledger.ProcessedFileRecord
	for _, r := range rows {
		if r.FilePath == key {
			out = append(out, r)
		}
	}
	return out
}

func TestProcess_Success(t *testing.T) {
	key := "pending/acme/prices.json"
	f := newFixture(t, map[string]string{key: acmeFile})

	res, err := f.orch.Process(context.Background(), FileRequest{Key: key, CorrelationID: "evt-1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 2, res.Published)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, "acme", res.Company)
	assert.Len(t, res.Hash, 64)
	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, "processed/acme/prices.json", res.MovedTo)
	assert.Equal(t, "processed/acme/prices.json", f.moves[key])

	require.Len(t, f.pub.requests, 1)
	req := f.pub.requests[0]
	assert.Equal(t, res.BatchID, req.BatchID)
	assert.Equal(t, "acme", req.Company)
	assert.Equal(t, "evt-1", req.CorrelationID)
	assert.Equal(t, 2024, req.FileProcessedAt.Year())
	assert.Equal(t, "10.5", req.Items[0].Price.String())

	rows := f.rows(t, key)
	require.Len(t, rows, 1)
	assert.Equal(t, ledger.StatusSuccess, rows[0].Status)
	assert.Equal(t, 0, rows[0].Attempt)
	assert.Equal(t, 2, rows[0].RecordsProcessed)
	assert.Equal(t, "evt-1", rows[0].CorrelationID)
	assert.Equal(t, res.BatchID, rows[0].BatchID)
}

func TestProcess_Partial(t *testing.T) {
	key := "pending/acme/partial.json"
	f := newFixture(t, map[string]string{key: partialFile})

	res, err := f.orch.Process(context.Background(), FileRequest{Key: key})
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, 1, res.Published)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "item 1: productId is required")
	assert.Equal(t, "processed/acme/partial.json", res.MovedTo)

	rows := f.rows(t, key)
	require.Len(t, rows, 1)
	assert.Equal(t, ledger.StatusPartial, rows[0].Status)
	assert.Contains(t, rows[0].ErrorMessage, "1 item(s) failed")
}

func TestProcess_PublishFailuresMakePartial(t *testing.T) {
	key := "pending/acme/prices.json"
	f := newFixture(t, map[string]string{key: acmeFile})
	f.pub.failIDs = map[string]bool{"P2": true}

	res, err := f.orch.Process(context.Background(), FileRequest{Key: key})
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, 1, res.Published)
	assert.Equal(t, 1, res.Failed)
}

func TestProcess_AllItemsInvalid(t *testing.T) {
	key := "pending/acme/bad.json"
	f := newFixture(t, map[string]string{key: invalidItemsFile})

	res, err := f.orch.Process(context.Background(), FileRequest{Key: key})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, 0, res.Published)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, f.pub.requests)
	assert.Equal(t, "unprocessed/acme/bad.json", res.MovedTo)
	assert.Contains(t, f.rows(t, key)[0].ErrorMessage, "price must be non-negative")
}

func TestProcess_BatchFailure(t *testing.T) {
	key := "pending/acme/prices.json"
	f := newFixture(t, map[string]string{key: acmeFile})
	f.pub.err = errs.New(errs.KindTransientPublish, errs.WithMessage("broker unavailable"))

	res, err := f.orch.Process(context.Background(), FileRequest{Key: key})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, 0, res.Published)
	assert.Equal(t, 2, res.Failed)
	assert.True(t, errs.IsKind(res.Reason, errs.KindTransientPublish))
	assert.Equal(t, "unprocessed/acme/prices.json", res.MovedTo)
}

func TestProcess_DuplicateAndForce(t *testing.T) {
	key := "pending/acme/prices.json"
	f := newFixture(t, map[string]string{key: acmeFile})
	ctx := context.Background()

	_, err := f.orch.Process(ctx, FileRequest{Key: key})
	require.NoError(t, err)

	res, err := f.orch.Process(ctx, FileRequest{Key: key})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, 1, res.Attempt)
	assert.Empty(t, res.MovedTo, "duplicates stay where they are")
	assert.Len(t, f.pub.requests, 1, "duplicates are not published")
	f.client.AssertNumberOfCalls(t, "CopyObject", 1)
	f.client.AssertNumberOfCalls(t, "RemoveObject", 1)

	rows := f.rows(t, key)
	require.Len(t, rows, 2)

	res, err = f.orch.Process(ctx, FileRequest{Key: key, Force: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 2, res.Attempt)
	assert.Len(t, f.pub.requests, 2)
	f.client.AssertNumberOfCalls(t, "CopyObject", 2)

	rows = f.rows(t, key)
	assert.Len(t, rows, 3)
}

func TestProcess_OwnershipMismatch(t *testing.T) {
	cases := map[string]struct {
		key     string
		content string
		message string
	}{
		"company differs from folder": {"pending/acme/globex.json", globexFile, `folder "acme" does not match company "globex"`},
		"unknown seller":              {"pending/umbrella/u.json", `{"metadata":{"company":"umbrella"},"items":[]}`, "unknown seller"},
		"inactive seller":             {"pending/initech/i.json", `{"metadata":{"company":"Initech"},"items":[]}`, "seller is inactive"},
		"no company folder":           {"pending/loose.json", acmeFile, "not inside a company folder"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, map[string]string{tc.key: tc.content})

			res, err := f.orch.Process(context.Background(), FileRequest{Key: tc.key})
			require.NoError(t, err)
			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.True(t, errs.IsKind(res.Reason, errs.KindOwnershipMismatch))
			assert.Contains(t, res.Reason.Error(), tc.message)
			assert.True(t, strings.HasPrefix(res.MovedTo, "unprocessed/"))
			assert.Empty(t, f.pub.requests)

			rows := f.rows(t, tc.key)
			require.Len(t, rows, 1)
			assert.Equal(t, ledger.StatusFailed, rows[0].Status)
		})
	}
}

func TestProcess_StructuralInvalid(t *testing.T) {
	cases := map[string]string{
		"missing items":    noItemsFile,
		"missing metadata": `{"items": []}`,
		"malformed prefix": `{"metadata": {"company": "acme"}, "items": [}`,
		"not an object":    `[1, 2, 3]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			key := "pending/acme/broken.json"
			f := newFixture(t, map[string]string{key: content})

			res, err := f.orch.Process(context.Background(), FileRequest{Key: key})
			require.NoError(t, err)
			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.True(t, errs.IsKind(res.Reason, errs.KindStructuralInvalid), res.Reason)
			assert.Equal(t, "unprocessed/acme/broken.json", res.MovedTo)

			rows := f.rows(t, key)
			require.Len(t, rows, 1)
			assert.True(t, strings.HasPrefix(rows[0].ErrorMessage, "invalid file structure: "), rows[0].ErrorMessage)
		})
	}
}

func TestProcess_OutsidePendingIsSkipped(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.orch.Process(context.Background(), FileRequest{Key: "processed/acme/prices.json"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	f.client.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_StorageUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	f.client.On("GetObject", mock.Anything, bucket, "pending/acme/x.json", mock.Anything).
		Return(nil, errors.New("connection refused"))

	res, err := f.orch.Process(context.Background(), FileRequest{Key: "pending/acme/x.json"})
	assert.Error(t, err)
	assert.Nil(t, res)
	assert.Empty(t, f.rows(t, "pending/acme/x.json"))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "", summarize(nil))

	msgs := make([]string, maxErrorMessages+2)
	for i := range msgs {
		msgs[i] = "e"
	}
	out := summarize(msgs)
	assert.True(t, strings.HasPrefix(out, "22 item(s) failed: e; e"))
	assert.True(t, strings.HasSuffix(out, "; and 2 more"))
}
