// Package stream provides the DynamoDB Streams handler that keeps directory
// trees consistent after deletes, renames and moves.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/directories/directory"
	"github.com/jacentio/directories/store"
)

// Handler processes DynamoDB stream events from the directories table.
type Handler struct {
	directories *directory.Service
	logger      *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(svc *directory.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		directories: svc,
		logger:      logger,
	}
}

// HandleDirectoryEvent processes a batch of stream records.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleDirectoryEvent(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"eventName", record.EventName,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	switch record.EventName {
	case "REMOVE":
		return h.processRemove(ctx, record.Change.OldImage)
	case "MODIFY":
		return h.processModify(ctx, record.Change.OldImage, record.Change.NewImage)
	}
	// INSERT: the parent entry was written in the same transaction.
	return nil
}

func (h *Handler) processRemove(ctx context.Context, image map[string]events.DynamoDBAttributeValue) error {
	dir, err := decodeDirectory(image)
	if err != nil {
		return err
	}

	h.logger.Info("processing directory delete",
		"owner", dir.Owner,
		"directoryId", dir.ID,
		"parent", dir.Parent,
	)

	// 1. Delete sub-directories (each triggers its own REMOVE event)
	deleted, err := h.directories.DeleteSubdirectories(ctx, dir)
	if err != nil {
		return fmt.Errorf("delete subdirectories: %w", err)
	}

	// 2. Drop the entry in the parent
	if err := h.directories.RemoveFromParent(ctx, dir); err != nil {
		return fmt.Errorf("remove from parent: %w", err)
	}

	h.logger.Info("directory delete processed",
		"owner", dir.Owner,
		"directoryId", dir.ID,
		"subdirectoriesDeleted", deleted,
	)
	return nil
}

func (h *Handler) processModify(ctx context.Context, oldImage, newImage map[string]events.DynamoDBAttributeValue) error {
	// Only changes visible in the parent's entry need propagating. The
	// parent's own updatedAt is not copied upwards, so this does not recurse.
	if getStringAttr(oldImage, "name") == getStringAttr(newImage, "name") &&
		getStringAttr(oldImage, "visibility") == getStringAttr(newImage, "visibility") &&
		getStringAttr(oldImage, "parent") == getStringAttr(newImage, "parent") {
		return nil
	}

	dir, err := decodeDirectory(newImage)
	if err != nil {
		return err
	}
	h.logger.Info("syncing parent entry",
		"owner", dir.Owner,
		"directoryId", dir.ID,
		"parent", dir.Parent,
	)
	return h.directories.SyncParentEntry(ctx, dir)
}

func decodeDirectory(image map[string]events.DynamoDBAttributeValue) (*directory.Directory, error) {
	item, err := ConvertStreamImage(image)
	if err != nil {
		return nil, err
	}
	var dir directory.Directory
	if err := attributevalue.UnmarshalMap(item, &dir); err != nil {
		return nil, fmt.Errorf("decode directory image: %w", err)
	}
	if dir.Owner == "" || dir.ID == "" {
		return nil, fmt.Errorf("decode directory image: missing key attributes")
	}
	return &dir, nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// ConvertStreamKey converts a DynamoDB stream key to a store.PK.
// Use this when you need to convert keys from stream records to store operations.
func ConvertStreamKey(streamKey map[string]events.DynamoDBAttributeValue) store.PK {
	result := make(store.PK)
	for k, v := range streamKey {
		switch v.DataType() {
		case events.DataTypeString:
			result[k] = &types.AttributeValueMemberS{Value: v.String()}
		case events.DataTypeNumber:
			result[k] = &types.AttributeValueMemberN{Value: v.Number()}
		case events.DataTypeBinary:
			result[k] = &types.AttributeValueMemberB{Value: v.Binary()}
		}
	}
	return result
}

// ConvertStreamImage converts a full stream image, including nested maps,
// lists and sets, to SDK attribute values.
func ConvertStreamImage(image map[string]events.DynamoDBAttributeValue) (map[string]types.AttributeValue, error) {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		av, err := convertStreamValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		result[k] = av
	}
	return result, nil
}

func convertStreamValue(v events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}, nil
	case events.DataTypeMap:
		m, err := ConvertStreamImage(v.Map())
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, len(list))
		for i, e := range list {
			av, err := convertStreamValue(e)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = av
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	}
	return nil, fmt.Errorf("unsupported stream attribute type %v", v.DataType())
}
