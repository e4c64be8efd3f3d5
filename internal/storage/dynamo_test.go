// internal/storage/dynamo_test.go
package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipelineerrors "feedback-pipeline/internal/common/errors"
	"feedback-pipeline/internal/common/logger"
	"feedback-pipeline/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeDynamoClient struct {
	putInputs    []*dynamodb.PutItemInput
	putErrs      []error
	queryInput   *dynamodb.QueryInput
	queryOutput  *dynamodb.QueryOutput
	queryErr     error
	updateInput  *dynamodb.UpdateItemInput
	updateErr    error
}

func (f *fakeDynamoClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInputs = append(f.putInputs, params)
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		return nil, err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInput = params
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryOutput == nil {
		return &dynamodb.QueryOutput{}, nil
	}
	return f.queryOutput, nil
}

func (f *fakeDynamoClient) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateInput = params
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func newTestStore(t *testing.T, client *fakeDynamoClient) *DynamoStore {
	t.Helper()
	return NewDynamoStoreWithClient(client, "feedback-analysis-results", logger.NewTestLogger(t))
}

// ==========================
// Query Tests
// ==========================

func TestLatestRecord_SelectsNewestVersion(t *testing.T) {
	record := models.FeedbackRecord{
		FeedbackID: "fb-1",
		Timestamp:  1700000000,
		Status:     models.StatusCompleted,
	}
	item, err := attributevalue.MarshalMap(record)
	require.NoError(t, err)

	client := &fakeDynamoClient{queryOutput: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{item},
	}}
	store := newTestStore(t, client)

	got, err := store.LatestRecord(context.Background(), "fb-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fb-1", got.FeedbackID)
	assert.Equal(t, int64(1700000000), got.Timestamp)

	// The query must read newest-first and fetch a single item.
	require.NotNil(t, client.queryInput)
	assert.Equal(t, "feedback_id = :id", *client.queryInput.KeyConditionExpression)
	assert.False(t, *client.queryInput.ScanIndexForward)
	assert.Equal(t, int32(1), *client.queryInput.Limit)
}

func TestLatestRecord_AbsentIsNotAnError(t *testing.T) {
	store := newTestStore(t, &fakeDynamoClient{})

	got, err := store.LatestRecord(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLatestRecord_QueryFault(t *testing.T) {
	client := &fakeDynamoClient{queryErr: errors.New("throttled")}
	store := newTestStore(t, client)

	got, err := store.LatestRecord(context.Background(), "fb-1")
	assert.Nil(t, got)

	var perr *pipelineerrors.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, pipelineerrors.ErrCodeDatabaseQueryFailed, perr.Code)
	assert.True(t, perr.Retryable)
}

// ==========================
// Write Tests
// ==========================

func TestPutRecord_ConditionalWrite(t *testing.T) {
	client := &fakeDynamoClient{}
	store := newTestStore(t, client)

	err := store.PutRecord(context.Background(), &models.FeedbackRecord{
		FeedbackID: "fb-1",
		Timestamp:  1700000000,
		Status:     models.StatusProcessing,
	})
	require.NoError(t, err)

	require.Len(t, client.putInputs, 1)
	assert.Equal(t, "attribute_not_exists(feedback_id) AND attribute_not_exists(#ts)", *client.putInputs[0].ConditionExpression)
}

func TestPutRecord_CollisionOverwrites(t *testing.T) {
	client := &fakeDynamoClient{putErrs: []error{&types.ConditionalCheckFailedException{}}}
	store := newTestStore(t, client)

	err := store.PutRecord(context.Background(), &models.FeedbackRecord{
		FeedbackID: "fb-1",
		Timestamp:  1700000000,
		Status:     models.StatusProcessing,
	})
	require.NoError(t, err)

	require.Len(t, client.putInputs, 2)
	assert.Nil(t, client.putInputs[1].ConditionExpression, "retry must be unconditional")
}

func TestPutRecord_WriteFault(t *testing.T) {
	client := &fakeDynamoClient{putErrs: []error{errors.New("capacity exceeded")}}
	store := newTestStore(t, client)

	err := store.PutRecord(context.Background(), &models.FeedbackRecord{FeedbackID: "fb-1"})

	var perr *pipelineerrors.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, pipelineerrors.ErrCodeDatabaseWriteFailed, perr.Code)
}

func TestCompleteRecord_UpdateExpression(t *testing.T) {
	client := &fakeDynamoClient{}
	store := newTestStore(t, client)

	results := map[string]interface{}{"analysis": `{"executive_summary":"Good"}`}
	err := store.CompleteRecord(context.Background(), "fb-1", 1700000000, results)
	require.NoError(t, err)

	require.NotNil(t, client.updateInput)
	assert.Equal(t, "SET #status = :status, #results = :results, #updated_at = :updated_at", *client.updateInput.UpdateExpression)

	status, ok := client.updateInput.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, status.Value)

	key, ok := client.updateInput.Key["timestamp"].(*types.AttributeValueMemberN)
	require.True(t, ok)
	assert.Equal(t, "1700000000", key.Value)
}

func TestFailRecord_SetsFailedStatus(t *testing.T) {
	client := &fakeDynamoClient{}
	store := newTestStore(t, client)

	err := store.FailRecord(context.Background(), "fb-1", 1700000000, map[string]interface{}{"error": "summarization failed"})
	require.NoError(t, err)

	status := client.updateInput.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS)
	assert.Equal(t, models.StatusFailed, status.Value)
}
