package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/directories/expression"
)

// Store executes conditional reads and writes against DynamoDB.
type Store struct {
	client Client
	config Config
}

// New creates a new Store instance.
func New(client Client, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Config returns the validated configuration.
func (s *Store) Config() Config {
	return s.config
}

// Get retrieves an item by key with a strongly consistent read,
// returning ErrNotFound if it is missing.
func (s *Store) Get(ctx context.Context, table string, key PK) (map[string]types.AttributeValue, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	return result.Item, nil
}

// Update executes the update described by b and returns whatever attributes
// the builder's return mode asked for (nil for NONE).
func (s *Store) Update(ctx context.Context, b *expression.Builder) (map[string]types.AttributeValue, error) {
	input, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	result, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		return nil, mapConditionError(err)
	}
	return result.Attributes, nil
}

// Delete removes the item at key if cond holds (nil cond = unconditional)
// and returns the item as it was before the delete.
func (s *Store) Delete(ctx context.Context, table string, key PK, cond expression.Condition) (map[string]types.AttributeValue, error) {
	input := &dynamodb.DeleteItemInput{
		TableName:    aws.String(table),
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	}
	if cond != nil {
		rendered, err := expression.RenderCondition(cond)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		input.ConditionExpression = aws.String(rendered.Expression)
		input.ExpressionAttributeNames = rendered.Names
		input.ExpressionAttributeValues = rendered.Values
	}

	result, err := s.client.DeleteItem(ctx, input)
	if err != nil {
		return nil, mapConditionError(err)
	}
	return result.Attributes, nil
}

// Transact executes all builders as one TransactWriteItems call. Either every
// write is applied or none is. A failed condition is reported as a
// *TransactionError whose Index is the position of the offending builder.
func (s *Store) Transact(ctx context.Context, builders ...*expression.Builder) error {
	if len(builders) == 0 {
		return nil
	}
	if len(builders) > MaxTransactItems {
		return fmt.Errorf("%w: %d > %d", ErrTooManyWrites, len(builders), MaxTransactItems)
	}

	items := make([]types.TransactWriteItem, 0, len(builders))
	for i, b := range builders {
		update, err := b.BuildTransactUpdate()
		if err != nil {
			return fmt.Errorf("%w: write %d: %w", ErrInvalidRequest, i, err)
		}
		items = append(items, types.TransactWriteItem{Update: update})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return mapTransactionError(err)
}

// Query runs a query and follows pagination until every page is read.
func (s *Store) Query(ctx context.Context, input QueryInput) ([]map[string]types.AttributeValue, error) {
	queryInput := &dynamodb.QueryInput{
		TableName:                 aws.String(input.TableName),
		KeyConditionExpression:    aws.String(input.KeyConditionExpression),
		ExpressionAttributeNames:  input.ExpressionAttributeNames,
		ExpressionAttributeValues: input.ExpressionAttributeValues,
	}

	if input.FilterExpression != "" {
		queryInput.FilterExpression = aws.String(input.FilterExpression)
	}
	if input.IndexName != "" {
		queryInput.IndexName = aws.String(input.IndexName)
	}
	if input.Limit > 0 {
		queryInput.Limit = aws.Int32(input.Limit)
	}
	if input.ScanIndexForward != nil {
		queryInput.ScanIndexForward = input.ScanIndexForward
	}

	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(s.client, queryInput)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}

	return items, nil
}

// mapConditionError maps a single-item conditional failure to ErrConditionFailed.
func mapConditionError(err error) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrConditionFailed
	}
	return err
}

// mapTransactionError maps DynamoDB transaction cancellations to *TransactionError.
func mapTransactionError(err error) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return err
	}

	result := &TransactionError{Index: -1, cause: err}
	for i, reason := range txErr.CancellationReasons {
		code := aws.ToString(reason.Code)
		if code == "" || code == "None" {
			continue
		}
		if result.Code == "" {
			result.Code = code
		}
		if code == "ConditionalCheckFailed" {
			result.Index = i
			result.Code = code
			break
		}
	}
	return result
}
