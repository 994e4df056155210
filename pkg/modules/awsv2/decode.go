package awsv2

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-viper/mapstructure/v2"
)

var attributeValueType = reflect.TypeOf((*ddbtypes.AttributeValue)(nil)).Elem()

// DecodeInput decodes a generic parameter map into an operation input
// struct. Decoding is weakly typed, so "5" fills an int32 field and "true" a
// bool field. Field names match case-insensitively. Timestamps are RFC 3339
// strings and DynamoDB attribute values use the {"S": "..."} wire shape.
func DecodeInput(params map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			attributeValueHook,
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

func attributeValueHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != attributeValueType {
		return data, nil
	}
	return toAttributeValue(data)
}

// toAttributeValue converts the wire shape of an attribute value. Values not
// in wire shape are marshaled as plain Go values.
func toAttributeValue(data interface{}) (ddbtypes.AttributeValue, error) {
	m, ok := data.(map[string]interface{})
	if !ok || len(m) != 1 {
		return attributevalue.Marshal(data)
	}

	for key, v := range m {
		switch key {
		case "S":
			return &ddbtypes.AttributeValueMemberS{Value: scalarString(v)}, nil
		case "N":
			return &ddbtypes.AttributeValueMemberN{Value: scalarString(v)}, nil
		case "BOOL":
			b, err := strconv.ParseBool(scalarString(v))
			if err != nil {
				return nil, fmt.Errorf("invalid BOOL attribute: %w", err)
			}
			return &ddbtypes.AttributeValueMemberBOOL{Value: b}, nil
		case "NULL":
			return &ddbtypes.AttributeValueMemberNULL{Value: true}, nil
		case "B":
			b, err := base64.StdEncoding.DecodeString(scalarString(v))
			if err != nil {
				return nil, fmt.Errorf("invalid B attribute: %w", err)
			}
			return &ddbtypes.AttributeValueMemberB{Value: b}, nil
		case "SS", "NS":
			items, ok := v.([]interface{})
			if !ok {
				return nil, fmt.Errorf("invalid %s attribute: expected a list", key)
			}
			values := make([]string, len(items))
			for i, item := range items {
				values[i] = scalarString(item)
			}
			if key == "SS" {
				return &ddbtypes.AttributeValueMemberSS{Value: values}, nil
			}
			return &ddbtypes.AttributeValueMemberNS{Value: values}, nil
		case "L":
			items, ok := v.([]interface{})
			if !ok {
				return nil, fmt.Errorf("invalid L attribute: expected a list")
			}
			values := make([]ddbtypes.AttributeValue, len(items))
			for i, item := range items {
				av, err := toAttributeValue(item)
				if err != nil {
					return nil, err
				}
				values[i] = av
			}
			return &ddbtypes.AttributeValueMemberL{Value: values}, nil
		case "M":
			inner, ok := v.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("invalid M attribute: expected a map")
			}
			values := make(map[string]ddbtypes.AttributeValue, len(inner))
			for k, item := range inner {
				av, err := toAttributeValue(item)
				if err != nil {
					return nil, err
				}
				values[k] = av
			}
			return &ddbtypes.AttributeValueMemberM{Value: values}, nil
		}
	}
	return attributevalue.Marshal(data)
}

func scalarString(v interface{}) string {
	switch tv := v.(type) {
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", tv)
	}
}
