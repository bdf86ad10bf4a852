package ddbfake

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func getPath(item map[string]types.AttributeValue, path docPath) (types.AttributeValue, bool) {
	if item == nil || len(path) == 0 {
		return nil, false
	}
	var cur types.AttributeValue = &types.AttributeValueMemberM{Value: item}
	for _, seg := range path {
		m, ok := cur.(*types.AttributeValueMemberM)
		if !ok {
			return nil, false
		}
		next, ok := m.Value[seg]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// parentMap walks to the map holding the last segment of path.
func parentMap(item map[string]types.AttributeValue, path docPath) (map[string]types.AttributeValue, error) {
	cur := item
	for _, seg := range path[:len(path)-1] {
		next, ok := cur[seg]
		if !ok {
			return nil, fmt.Errorf("the document path provided in the update expression is invalid for update: %s", path)
		}
		m, ok := next.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("the document path provided in the update expression is invalid for update: %s", path)
		}
		cur = m.Value
	}
	return cur, nil
}

func setPath(item map[string]types.AttributeValue, path docPath, v types.AttributeValue) error {
	m, err := parentMap(item, path)
	if err != nil {
		return err
	}
	m[path[len(path)-1]] = cloneAV(v)
	return nil
}

func removePath(item map[string]types.AttributeValue, path docPath) error {
	m, err := parentMap(item, path)
	if err != nil {
		return err
	}
	delete(m, path[len(path)-1])
	return nil
}

func equalAV(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		return ok && bytes.Equal(av.Value, bv.Value)
	case *types.AttributeValueMemberM:
		bv, ok := b.(*types.AttributeValueMemberM)
		return ok && equalItem(av.Value, bv.Value)
	case *types.AttributeValueMemberL:
		bv, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i := range av.Value {
			if !equalAV(av.Value[i], bv.Value[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func equalItem(a, b map[string]types.AttributeValue) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		o, ok := b[k]
		if !ok || !equalAV(v, o) {
			return false
		}
	}
	return true
}

func cloneAV(v types.AttributeValue) types.AttributeValue {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		return &types.AttributeValueMemberS{Value: av.Value}
	case *types.AttributeValueMemberN:
		return &types.AttributeValueMemberN{Value: av.Value}
	case *types.AttributeValueMemberBOOL:
		return &types.AttributeValueMemberBOOL{Value: av.Value}
	case *types.AttributeValueMemberNULL:
		return &types.AttributeValueMemberNULL{Value: av.Value}
	case *types.AttributeValueMemberB:
		return &types.AttributeValueMemberB{Value: append([]byte(nil), av.Value...)}
	case *types.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: append([]string(nil), av.Value...)}
	case *types.AttributeValueMemberNS:
		return &types.AttributeValueMemberNS{Value: append([]string(nil), av.Value...)}
	case *types.AttributeValueMemberBS:
		out := make([][]byte, len(av.Value))
		for i, b := range av.Value {
			out[i] = append([]byte(nil), b...)
		}
		return &types.AttributeValueMemberBS{Value: out}
	case *types.AttributeValueMemberM:
		return &types.AttributeValueMemberM{Value: cloneItem(av.Value)}
	case *types.AttributeValueMemberL:
		out := make([]types.AttributeValue, len(av.Value))
		for i, e := range av.Value {
			out[i] = cloneAV(e)
		}
		return &types.AttributeValueMemberL{Value: out}
	}
	return v
}

func cloneItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = cloneAV(v)
	}
	return out
}

func scalarString(v types.AttributeValue) (string, bool) {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + av.Value, true
	case *types.AttributeValueMemberN:
		return "N:" + av.Value, true
	case *types.AttributeValueMemberB:
		return "B:" + string(av.Value), true
	}
	return "", false
}
