package directory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ItemType tags the variant of a directory item in storage and JSON.
type ItemType string

const (
	ItemDirectory  ItemType = "DIRECTORY"
	ItemOwnedGame  ItemType = "OWNED_GAME"
	ItemMasterGame ItemType = "MASTER_GAME"
	ItemDojoGame   ItemType = "DOJO_GAME"
)

// IsGame reports whether t is one of the game variants.
func (t ItemType) IsGame() bool {
	return t == ItemOwnedGame || t == ItemMasterGame || t == ItemDojoGame
}

// MastersCohort is the cohort of games imported from master play.
const MastersCohort = "masters"

// Item is one entry of a directory's item map: a SubdirectoryItem or a GameItem.
type Item interface {
	ItemID() string
	ItemType() ItemType
	isItem()
}

// SubdirectoryMetadata is the displayable copy of a sub-directory kept by its parent.
type SubdirectoryMetadata struct {
	CreatedAt  time.Time  `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time  `dynamodbav:"updatedAt" json:"updatedAt"`
	Visibility Visibility `dynamodbav:"visibility" json:"visibility"`
	Name       string     `dynamodbav:"name" json:"name"`
}

// SubdirectoryItem references a child directory. ID is the child's id.
type SubdirectoryItem struct {
	ID       string
	Metadata SubdirectoryMetadata
}

func (s SubdirectoryItem) ItemID() string     { return s.ID }
func (s SubdirectoryItem) ItemType() ItemType { return ItemDirectory }
func (SubdirectoryItem) isItem()              {}

type subdirectoryRecord struct {
	Type     ItemType             `dynamodbav:"type" json:"type"`
	ID       string               `dynamodbav:"id" json:"id"`
	Metadata SubdirectoryMetadata `dynamodbav:"metadata" json:"metadata"`
}

func (s SubdirectoryItem) record() subdirectoryRecord {
	return subdirectoryRecord{Type: ItemDirectory, ID: s.ID, Metadata: s.Metadata}
}

// MarshalDynamoDBAttributeValue adds the DIRECTORY type tag.
func (s SubdirectoryItem) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return attributevalue.Marshal(s.record())
}

// MarshalJSON adds the DIRECTORY type tag.
func (s SubdirectoryItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.record())
}

// GameMetadata is the snapshot of a game embedded in a directory. It is
// supplied by the caller and never re-validated against the game itself.
type GameMetadata struct {
	Cohort           string `dynamodbav:"cohort" json:"cohort"`
	ID               string `dynamodbav:"id" json:"id"`
	Owner            string `dynamodbav:"owner" json:"owner"`
	OwnerDisplayName string `dynamodbav:"ownerDisplayName" json:"ownerDisplayName"`
	CreatedAt        string `dynamodbav:"createdAt" json:"createdAt"`
	White            string `dynamodbav:"white" json:"white"`
	Black            string `dynamodbav:"black" json:"black"`
	WhiteElo         string `dynamodbav:"whiteElo,omitempty" json:"whiteElo,omitempty"`
	BlackElo         string `dynamodbav:"blackElo,omitempty" json:"blackElo,omitempty"`
	Result           string `dynamodbav:"result" json:"result"`
}

// ItemID returns the id a game is stored under: cohort#id.
func (g GameMetadata) ItemID() string {
	return g.Cohort + "#" + g.ID
}

// GameItem references a game. Type is one of the game variants.
type GameItem struct {
	Type     ItemType     `dynamodbav:"type" json:"type"`
	ID       string       `dynamodbav:"id" json:"id"`
	Metadata GameMetadata `dynamodbav:"metadata" json:"metadata"`
}

func (g GameItem) ItemID() string     { return g.ID }
func (g GameItem) ItemType() ItemType { return g.Type }
func (GameItem) isItem()              {}

// Items maps item ids to items.
type Items map[string]Item

// MarshalDynamoDBAttributeValue always produces a map, even for nil Items,
// so nested item paths can be set on a new directory.
func (it Items) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	m := make(map[string]types.AttributeValue, len(it))
	for id, item := range it {
		av, err := attributevalue.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("marshal item %s: %w", id, err)
		}
		m[id] = av
	}
	return &types.AttributeValueMemberM{Value: m}, nil
}

// UnmarshalDynamoDBAttributeValue decodes each entry by its type tag.
func (it *Items) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	if _, ok := av.(*types.AttributeValueMemberNULL); ok {
		*it = Items{}
		return nil
	}
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return fmt.Errorf("items: expected map attribute, got %T", av)
	}
	out := make(Items, len(m.Value))
	for id, raw := range m.Value {
		item, err := decodeItem(raw)
		if err != nil {
			return fmt.Errorf("item %s: %w", id, err)
		}
		out[id] = item
	}
	*it = out
	return nil
}

func decodeItem(av types.AttributeValue) (Item, error) {
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return nil, fmt.Errorf("expected map attribute, got %T", av)
	}
	var head struct {
		Type ItemType `dynamodbav:"type"`
	}
	if err := attributevalue.UnmarshalMap(m.Value, &head); err != nil {
		return nil, err
	}

	switch {
	case head.Type == ItemDirectory:
		var r subdirectoryRecord
		if err := attributevalue.UnmarshalMap(m.Value, &r); err != nil {
			return nil, err
		}
		return SubdirectoryItem{ID: r.ID, Metadata: r.Metadata}, nil
	case head.Type.IsGame():
		var g GameItem
		if err := attributevalue.UnmarshalMap(m.Value, &g); err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown item type %q", head.Type)
}

// MarshalJSON encodes nil Items as an empty object.
func (it Items) MarshalJSON() ([]byte, error) {
	m := make(map[string]Item, len(it))
	for id, item := range it {
		m[id] = item
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes each entry by its type tag.
func (it *Items) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Items, len(raw))
	for id, msg := range raw {
		var head struct {
			Type ItemType `json:"type"`
		}
		if err := json.Unmarshal(msg, &head); err != nil {
			return fmt.Errorf("item %s: %w", id, err)
		}
		switch {
		case head.Type == ItemDirectory:
			var r subdirectoryRecord
			if err := json.Unmarshal(msg, &r); err != nil {
				return fmt.Errorf("item %s: %w", id, err)
			}
			out[id] = SubdirectoryItem{ID: r.ID, Metadata: r.Metadata}
		case head.Type.IsGame():
			var g GameItem
			if err := json.Unmarshal(msg, &g); err != nil {
				return fmt.Errorf("item %s: %w", id, err)
			}
			out[id] = g
		default:
			return fmt.Errorf("item %s: unknown item type %q", id, head.Type)
		}
	}
	*it = out
	return nil
}
