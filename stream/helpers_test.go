package stream

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

// --- getStringAttr Tests ---

func TestGetStringAttr_ExistingString(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"name": events.NewStringAttribute("test-value"),
	}

	result := getStringAttr(image, "name")
	if result != "test-value" {
		t.Errorf("expected 'test-value', got %q", result)
	}
}

func TestGetStringAttr_MissingKey(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"other": events.NewStringAttribute("value"),
	}

	result := getStringAttr(image, "name")
	if result != "" {
		t.Errorf("expected empty string for missing key, got %q", result)
	}
}

func TestGetStringAttr_NilImage(t *testing.T) {
	var image map[string]events.DynamoDBAttributeValue

	result := getStringAttr(image, "name")
	if result != "" {
		t.Errorf("expected empty string for nil image, got %q", result)
	}
}

func TestGetStringAttr_NonStringAttribute(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"name": events.NewNumberAttribute("12"),
	}

	result := getStringAttr(image, "name")
	if result != "" {
		t.Errorf("expected empty string for number attribute, got %q", result)
	}
}

func TestGetStringAttr_UnicodeValue(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"name": events.NewStringAttribute("Ouvertures à l'échiquier"),
	}

	result := getStringAttr(image, "name")
	if result != "Ouvertures à l'échiquier" {
		t.Errorf("expected unicode value, got %q", result)
	}
}

// --- decodeDirectory Tests ---

func TestDecodeDirectory_MissingKey(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"name": events.NewStringAttribute("Openings"),
	}
	if _, err := decodeDirectory(image); err == nil {
		t.Error("expected error for image without key attributes")
	}
}

func TestDecodeDirectory_BadItems(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"owner": events.NewStringAttribute("alice"),
		"id":    events.NewStringAttribute("home"),
		"items": events.NewStringAttribute("not a map"),
	}
	if _, err := decodeDirectory(image); err == nil {
		t.Error("expected error for malformed items")
	}
}

// --- processRecord Tests ---

func TestProcessRecord_SkipsInsertEvents(t *testing.T) {
	h := NewHandler(nil, nil)

	record := events.DynamoDBEventRecord{
		EventName: "INSERT",
		Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{
				"owner": events.NewStringAttribute("alice"),
				"id":    events.NewStringAttribute("home"),
			},
		},
	}

	if err := h.processRecord(context.Background(), record); err != nil {
		t.Errorf("expected nil error for INSERT event, got %v", err)
	}
}

func TestProcessRecord_SkipsModifyWithoutVisibleChange(t *testing.T) {
	h := NewHandler(nil, nil)

	image := func(updatedAt string) map[string]events.DynamoDBAttributeValue {
		return map[string]events.DynamoDBAttributeValue{
			"owner":      events.NewStringAttribute("alice"),
			"id":         events.NewStringAttribute("home"),
			"name":       events.NewStringAttribute("Home"),
			"visibility": events.NewStringAttribute("PUBLIC"),
			"parent":     events.NewStringAttribute("00000000-0000-0000-0000-000000000000"),
			"updatedAt":  events.NewStringAttribute(updatedAt),
		}
	}
	record := events.DynamoDBEventRecord{
		EventName: "MODIFY",
		Change: events.DynamoDBStreamRecord{
			OldImage: image("2024-01-01T00:00:00Z"),
			NewImage: image("2024-01-02T00:00:00Z"),
		},
	}

	// A nil service would panic if the handler tried to sync.
	if err := h.processRecord(context.Background(), record); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestProcessRecord_RemoveWithBadImage(t *testing.T) {
	h := NewHandler(nil, nil)

	record := events.DynamoDBEventRecord{
		EventName: "REMOVE",
		Change: events.DynamoDBStreamRecord{
			OldImage: map[string]events.DynamoDBAttributeValue{},
		},
	}
	if err := h.processRecord(context.Background(), record); err == nil {
		t.Error("expected error for REMOVE without a decodable image")
	}
}

// --- Benchmarks ---

func BenchmarkGetStringAttr(b *testing.B) {
	image := map[string]events.DynamoDBAttributeValue{
		"name": events.NewStringAttribute("test-value"),
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		getStringAttr(image, "name")
	}
}

func BenchmarkConvertStreamImage(b *testing.B) {
	image := map[string]events.DynamoDBAttributeValue{
		"owner": events.NewStringAttribute("alice"),
		"id":    events.NewStringAttribute("home"),
		"items": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"1500-1600#g1": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
				"type": events.NewStringAttribute("OWNED_GAME"),
				"id":   events.NewStringAttribute("1500-1600#g1"),
			}),
		}),
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ConvertStreamImage(image)
	}
}
