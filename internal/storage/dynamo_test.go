package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sometime-app/review-collector/internal/models"
)

// fakeDynamo implements DynamoAPI over an in-memory set of partition keys.
type fakeDynamo struct {
	mu         sync.Mutex
	known      map[string]bool
	queryCalls int
	writeCalls int
	writeSizes []int
	queryErr   error
	writeErr   error
}

func newFakeDynamo(knownPKs ...string) *fakeDynamo {
	known := make(map[string]bool)
	for _, pk := range knownPKs {
		known[pk] = true
	}
	return &fakeDynamo{known: known}
}

func (f *fakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	pk := params.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	count := int32(0)
	if f.known[pk] {
		count = 1
	}
	return &dynamodb.QueryOutput{Count: count}, nil
}

func (f *fakeDynamo) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writeCalls++
	if f.writeErr != nil {
		return nil, f.writeErr
	}

	for _, reqs := range params.RequestItems {
		f.writeSizes = append(f.writeSizes, len(reqs))
		for _, req := range reqs {
			pk := req.PutRequest.Item["pk"].(*types.AttributeValueMemberS).Value
			f.known[pk] = true
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func makeReviews(n int) []models.Review {
	reviews := make([]models.Review, n)
	for i := range reviews {
		reviews[i] = models.Review{
			ReviewID:  fmt.Sprintf("r%d", i+1),
			Store:     models.AppStore,
			Rating:    5,
			Body:      "body",
			Author:    "author",
			CreatedAt: time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC),
		}
	}
	return reviews
}

func TestDynamoStore_SaveNew_EmptyInputShortCircuits(t *testing.T) {
	client := newFakeDynamo()
	store := NewDynamoStore(client, "reviews")

	records, err := store.SaveNew(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, client.queryCalls)
	assert.Equal(t, 0, client.writeCalls)
}

func TestDynamoStore_SaveNew_WritesOnlyUnseen(t *testing.T) {
	reviews := makeReviews(5)
	// r2 and r4 are already persisted
	client := newFakeDynamo(reviews[1].PK(), reviews[3].PK())
	store := NewDynamoStore(client, "reviews")

	records, err := store.SaveNew(context.Background(), reviews)

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 5, client.queryCalls)
	assert.Equal(t, 1, client.writeCalls)
	assert.Equal(t, []int{3}, client.writeSizes)

	pks := []string{records[0].PK, records[1].PK, records[2].PK}
	assert.Contains(t, pks, reviews[0].PK())
	assert.Contains(t, pks, reviews[2].PK())
	assert.Contains(t, pks, reviews[4].PK())
}

func TestDynamoStore_SaveNew_AllKnownSkipsWrite(t *testing.T) {
	reviews := makeReviews(3)
	client := newFakeDynamo(reviews[0].PK(), reviews[1].PK(), reviews[2].PK())
	store := NewDynamoStore(client, "reviews")

	records, err := store.SaveNew(context.Background(), reviews)

	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, client.writeCalls)
}

func TestDynamoStore_SaveNew_Idempotent(t *testing.T) {
	reviews := makeReviews(4)
	client := newFakeDynamo()
	store := NewDynamoStore(client, "reviews")

	first, err := store.SaveNew(context.Background(), reviews)
	require.NoError(t, err)
	assert.Len(t, first, 4)

	second, err := store.SaveNew(context.Background(), reviews)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 1, client.writeCalls)
}

func TestDynamoStore_SaveNew_ChunksBatches(t *testing.T) {
	reviews := makeReviews(60)
	client := newFakeDynamo()
	store := NewDynamoStore(client, "reviews")

	records, err := store.SaveNew(context.Background(), reviews)

	require.NoError(t, err)
	assert.Len(t, records, 60)
	assert.Equal(t, 3, client.writeCalls)
	assert.Equal(t, []int{25, 25, 10}, client.writeSizes)
}

func TestDynamoStore_SaveNew_QueryErrorAborts(t *testing.T) {
	client := newFakeDynamo()
	client.queryErr = errors.New("throttled")
	store := NewDynamoStore(client, "reviews")

	records, err := store.SaveNew(context.Background(), makeReviews(2))

	require.Error(t, err)
	assert.Nil(t, records)
	assert.Equal(t, 0, client.writeCalls)
}

func TestDynamoStore_SaveNew_WriteErrorAborts(t *testing.T) {
	client := newFakeDynamo()
	client.writeErr = errors.New("table unavailable")
	store := NewDynamoStore(client, "reviews")

	records, err := store.SaveNew(context.Background(), makeReviews(2))

	require.Error(t, err)
	assert.Nil(t, records)
}

func TestDynamoStore_SaveNew_StampsCollectedAt(t *testing.T) {
	client := newFakeDynamo()
	store := NewDynamoStore(client, "reviews")
	store.now = func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) }

	records, err := store.SaveNew(context.Background(), makeReviews(1))

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2025-06-15T00:00:00Z", records[0].CollectedAt)
}
