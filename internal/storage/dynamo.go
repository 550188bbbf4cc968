package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sometime-app/review-collector/internal/models"
)

// DynamoDB caps BatchWriteItem at 25 items per call.
const batchWriteLimit = 25

// DynamoAPI is the subset of the DynamoDB client this store uses.
type DynamoAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoStore persists review records in a DynamoDB table keyed by
// pk = REVIEW#{store}#{reviewId}, sk = CREATED#{createdAt}.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

var _ ReviewStore = (*DynamoStore)(nil)

func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

// SaveNew checks every incoming review for existence (concurrently), then
// writes the unseen ones in sequential batches of 25.
//
// The check-then-write sequence is not atomic: two overlapping runs can both
// see "not found" for the same review. Puts are idempotent by key so the
// worst case is a redundant write and a duplicate digest entry.
func (s *DynamoStore) SaveNew(ctx context.Context, reviews []models.Review) ([]models.ReviewRecord, error) {
	if len(reviews) == 0 {
		return nil, nil
	}

	exists := make([]bool, len(reviews))
	g, gctx := errgroup.WithContext(ctx)
	for i, review := range reviews {
		g.Go(func() error {
			found, err := s.reviewExists(gctx, review.PK())
			if err != nil {
				return err
			}
			exists[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("existence check failed: %w", err)
	}

	collectedAt := s.now()
	var records []models.ReviewRecord
	for i, review := range reviews {
		if !exists[i] {
			records = append(records, models.NewReviewRecord(review, collectedAt))
		}
	}

	if len(records) == 0 {
		logrus.Debug("No unseen reviews in batch, skipping write")
		return nil, nil
	}

	for start := 0; start < len(records); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(records) {
			end = len(records)
		}
		if err := s.writeBatch(ctx, records[start:end]); err != nil {
			return nil, err
		}
	}

	logrus.Infof("Persisted %d new review records (%d already known)",
		len(records), len(reviews)-len(records))
	return records, nil
}

// reviewExists runs a count-only point query on the partition key.
func (s *DynamoStore) reviewExists(ctx context.Context, pk string) (bool, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
		Select: types.SelectCount,
		Limit:  aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return out.Count > 0, nil
}

func (s *DynamoStore) writeBatch(ctx context.Context, records []models.ReviewRecord) error {
	writeReqs := make([]types.WriteRequest, len(records))
	for i, record := range records {
		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", record.PK, err)
		}
		writeReqs[i] = types.WriteRequest{PutRequest: &types.PutRequest{Item: item}}
	}

	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{s.tableName: writeReqs},
	})
	if err != nil {
		return fmt.Errorf("batch write failed: %w", err)
	}
	if len(out.UnprocessedItems) > 0 {
		logrus.Errorf("Batch write left %d unprocessed items; next scheduled run will retry them",
			len(out.UnprocessedItems[s.tableName]))
	}
	return nil
}
