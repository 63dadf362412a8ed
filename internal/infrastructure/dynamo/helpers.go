package dynamo

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-taskboard-api/internal/domain"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// updateExpr is a compiled UpdateExpression with its placeholder maps.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a field->value map into a SET/REMOVE expression.
// Keys are sorted so the output is deterministic. A nil value removes the
// attribute, which keeps sparse GSI keys absent instead of NULL.
func buildUpdateExpr(updates map[string]interface{}) (*updateExpr, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := &updateExpr{Names: map[string]string{}, Values: map[string]types.AttributeValue{}}
	var sets, removes []string
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		ue.Names[nameKey] = k
		if isNil(updates[k]) {
			removes = append(removes, nameKey)
			continue
		}
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Values[valueKey] = av
		sets = append(sets, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}

	var parts []string
	if len(sets) > 0 {
		parts = append(parts, "SET "+strings.Join(sets, ", "))
	}
	if len(removes) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(removes, ", "))
	}
	ue.Expr = strings.Join(parts, " ")
	if len(ue.Values) == 0 {
		ue.Values = nil
	}
	return ue, nil
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// filterExpr is a compiled FilterExpression of equality terms joined by AND.
type filterExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildEqualityFilter ANDs together attr = value terms for every non-empty
// value. It returns nil when nothing needs filtering.
func buildEqualityFilter(terms map[string]string) *filterExpr {
	keys := make([]string, 0, len(terms))
	for k, v := range terms {
		if v != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	fe := &filterExpr{Names: map[string]string{}, Values: map[string]types.AttributeValue{}}
	clauses := make([]string, 0, len(keys))
	for i, k := range keys {
		n, v := fmt.Sprintf("#q%d", i), fmt.Sprintf(":q%d", i)
		fe.Names[n] = k
		fe.Values[v] = &types.AttributeValueMemberS{Value: terms[k]}
		clauses = append(clauses, n+" = "+v)
	}
	fe.Expr = strings.Join(clauses, " AND ")
	return fe
}

// mergeNames and mergeValues combine placeholder maps from key conditions and filters.
func mergeNames(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = map[string]string{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func mergeValues(dst, src map[string]types.AttributeValue) map[string]types.AttributeValue {
	if dst == nil {
		dst = map[string]types.AttributeValue{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// encodeCursor serialises a LastEvaluatedKey into an opaque URL-safe token.
// Only string key attributes are supported, which covers every table here.
func encodeCursor(key map[string]types.AttributeValue) string {
	if len(key) == 0 {
		return ""
	}
	flat := make(map[string]string, len(key))
	for k, v := range key {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			flat[k] = s.Value
		}
	}
	b, _ := json.Marshal(flat)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
	}
	var flat map[string]string
	if err := json.Unmarshal(b, &flat); err != nil || len(flat) == 0 {
		return nil, fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
	}
	key := make(map[string]types.AttributeValue, len(flat))
	for k, v := range flat {
		key[k] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}

// isConditionFailed reports whether err is a failed ConditionExpression,
// either on a single write or on any item of a transaction.
func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}

// pageLimit converts a page size into a DynamoDB Limit; non-positive means unbounded.
// withUpdatedAt returns a copy of updates stamped with updated_at, leaving the
// caller's map untouched.
func withUpdatedAt(updates map[string]interface{}, now time.Time) map[string]interface{} {
	out := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		out[k] = v
	}
	out[attrUpdatedAt] = now.UTC()
	return out
}

func pageLimit(n int) *int32 {
	if n <= 0 {
		return nil
	}
	return aws.Int32(int32(n))
}
