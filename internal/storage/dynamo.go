// internal/storage/dynamo.go

// Package storage implements the durable feedback record store on
// DynamoDB. The table uses the composite key (feedback_id, timestamp);
// retrieval reads the latest version, intake writes the initial
// processing record, and the analysis worker transitions it to its
// terminal state.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	pipelineerrors "feedback-pipeline/internal/common/errors"
	"feedback-pipeline/internal/common/logger"
	"feedback-pipeline/internal/models"
)

// dynamoAPI is the subset of the DynamoDB client the store uses.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore provides feedback record persistence against one table.
type DynamoStore struct {
	client dynamoAPI
	table  string
	logger logger.Logger
}

// NewDynamoStore builds a store with AWS credentials resolved from the
// default chain.
func NewDynamoStore(ctx context.Context, region, table string, log logger.Logger) (*DynamoStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &DynamoStore{
		client: dynamodb.NewFromConfig(cfg),
		table:  table,
		logger: log.With(map[string]interface{}{"component": "storage", "table": table}),
	}, nil
}

// NewDynamoStoreWithClient injects a preconfigured client. Used by tests
// and by local setups pointing at DynamoDB Local.
func NewDynamoStoreWithClient(client dynamoAPI, table string, log logger.Logger) *DynamoStore {
	return &DynamoStore{
		client: client,
		table:  table,
		logger: log.With(map[string]interface{}{"component": "storage", "table": table}),
	}
}

// LatestRecord returns the most recent record for the feedback id, or
// nil with a nil error when the id has never been seen.
func (s *DynamoStore) LatestRecord(ctx context.Context, feedbackID string) (*models.FeedbackRecord, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("feedback_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: feedbackID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, pipelineerrors.Wrap(pipelineerrors.ErrCodeDatabaseQueryFailed, "query feedback record", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	var record models.FeedbackRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &record); err != nil {
		return nil, pipelineerrors.Wrap(pipelineerrors.ErrCodeResultsCorrupted, "unmarshal feedback record", err)
	}
	return &record, nil
}

// PutRecord writes the initial processing record. The conditional write
// detects a key collision (same id, same second); on collision the store
// logs a warning and overwrites, keeping intake available rather than
// failing the submission.
func (s *DynamoStore) PutRecord(ctx context.Context, record *models.FeedbackRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return pipelineerrors.Wrap(pipelineerrors.ErrCodeDatabaseWriteFailed, "marshal feedback record", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(feedback_id) AND attribute_not_exists(#ts)"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "timestamp",
		},
	})
	if err == nil {
		return nil
	}

	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		s.logger.Warn("feedback record key collision, overwriting", map[string]interface{}{
			"feedbackId": record.FeedbackID,
			"timestamp":  record.Timestamp,
		})
		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.table),
			Item:      item,
		})
	}
	if err != nil {
		return pipelineerrors.Wrap(pipelineerrors.ErrCodeDatabaseWriteFailed, "put feedback record", err)
	}
	return nil
}

// CompleteRecord transitions a record to completed with its results.
func (s *DynamoStore) CompleteRecord(ctx context.Context, feedbackID string, timestamp int64, results interface{}) error {
	return s.transition(ctx, feedbackID, timestamp, models.StatusCompleted, results)
}

// FailRecord transitions a record to failed. Results carries the error
// detail the retrieval layer will surface.
func (s *DynamoStore) FailRecord(ctx context.Context, feedbackID string, timestamp int64, results interface{}) error {
	return s.transition(ctx, feedbackID, timestamp, models.StatusFailed, results)
}

func (s *DynamoStore) transition(ctx context.Context, feedbackID string, timestamp int64, status string, results interface{}) error {
	resultsAttr, err := attributevalue.Marshal(results)
	if err != nil {
		return pipelineerrors.Wrap(pipelineerrors.ErrCodeDatabaseWriteFailed, "marshal results", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"feedback_id": &types.AttributeValueMemberS{Value: feedbackID},
			"timestamp":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", timestamp)},
		},
		UpdateExpression: aws.String("SET #status = :status, #results = :results, #updated_at = :updated_at"),
		ExpressionAttributeNames: map[string]string{
			"#status":     "status",
			"#results":    "results",
			"#updated_at": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: status},
			":results":    resultsAttr,
			":updated_at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return pipelineerrors.Wrap(pipelineerrors.ErrCodeDatabaseWriteFailed, "update feedback record", err)
	}

	s.logger.Info("feedback record transitioned", map[string]interface{}{
		"feedbackId": feedbackID,
		"status":     status,
	})
	return nil
}
