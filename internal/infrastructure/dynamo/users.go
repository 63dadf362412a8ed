package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-taskboard-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table and its
// companion user_emails table, which holds one item per registered email.
type UserRepo struct {
	client      API
	tableName   string
	emailsTable string
	now         func() time.Time
}

func NewUserRepo(client API, tableName, emailsTable string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, emailsTable: emailsTable, now: time.Now}
}

type emailItem struct {
	Email  string `dynamodbav:"email"`
	UserID string `dynamodbav:"user_id"`
}

// Create writes the user and claims its email in one transaction.
// Either condition failing yields domain.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	claim, err := attributevalue.MarshalMap(emailItem{Email: u.Email, UserID: u.UserID})
	if err != nil {
		return fmt.Errorf("marshal email claim: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
				ExpressionAttributeNames: map[string]string{"#pk": attrUserID},
			}},
			{Put: &types.Put{
				TableName:                aws.String(r.emailsTable),
				Item:                     claim,
				ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
				ExpressionAttributeNames: map[string]string{"#pk": attrEmail},
			}},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(attrUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// GetByEmail resolves the email claim and then loads the user. Both reads are
// strongly consistent, which a GSI could not offer.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.emailsTable),
		Key:            strKey(attrEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get email claim: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var claim emailItem
	if err := attributevalue.UnmarshalMap(out.Item, &claim); err != nil {
		return nil, fmt.Errorf("unmarshal email claim: %w", err)
	}
	return r.Get(ctx, claim.UserID)
}

// Update applies a partial update to an existing user. A nil value removes the attribute.
func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(withUpdatedAt(updates, r.now()))
	if err != nil {
		return err
	}
	names := mergeNames(map[string]string{"#pk": attrUserID}, ue.Names)
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Delete removes the user and releases its email in one transaction.
func (r *UserRepo) Delete(ctx context.Context, userID, email string) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey(attrUserID, userID),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.emailsTable),
				Key:       strKey(attrEmail, email),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ScanPage returns one page of users matching the filter and the cursor for
// the next page (empty when exhausted). A department filter is served by the
// department GSI; anything else falls back to a filtered scan.
func (r *UserRepo) ScanPage(ctx context.Context, f domain.ListUsersFilter) ([]domain.User, string, error) {
	start, err := decodeCursor(f.Cursor)
	if err != nil {
		return nil, "", err
	}
	filter := buildEqualityFilter(map[string]string{attrRole: f.Role, attrStatus: f.Status})

	var (
		items []map[string]types.AttributeValue
		last  map[string]types.AttributeValue
	)
	if f.DepartmentID != "" {
		in := &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(indexDepartment),
			KeyConditionExpression:    aws.String("#dept = :dept"),
			ExpressionAttributeNames:  map[string]string{"#dept": attrDepartmentID},
			ExpressionAttributeValues: map[string]types.AttributeValue{":dept": &types.AttributeValueMemberS{Value: f.DepartmentID}},
			ExclusiveStartKey:         start,
			Limit:                     pageLimit(f.Limit),
		}
		if filter != nil {
			in.FilterExpression = aws.String(filter.Expr)
			in.ExpressionAttributeNames = mergeNames(in.ExpressionAttributeNames, filter.Names)
			in.ExpressionAttributeValues = mergeValues(in.ExpressionAttributeValues, filter.Values)
		}
		out, err := r.client.Query(ctx, in)
		if err != nil {
			return nil, "", fmt.Errorf("query users: %w", err)
		}
		items, last = out.Items, out.LastEvaluatedKey
	} else {
		in := &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: start,
			Limit:             pageLimit(f.Limit),
		}
		if filter != nil {
			in.FilterExpression = aws.String(filter.Expr)
			in.ExpressionAttributeNames = filter.Names
			in.ExpressionAttributeValues = filter.Values
		}
		out, err := r.client.Scan(ctx, in)
		if err != nil {
			return nil, "", fmt.Errorf("scan users: %w", err)
		}
		items, last = out.Items, out.LastEvaluatedKey
	}

	users := []domain.User{}
	if err := attributevalue.UnmarshalListOfMaps(items, &users); err != nil {
		return nil, "", fmt.Errorf("unmarshal users: %w", err)
	}
	return users, encodeCursor(last), nil
}

// HasDepartmentMembers reports whether any user still references the department.
func (r *UserRepo) HasDepartmentMembers(ctx context.Context, departmentID string) (bool, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexDepartment),
		KeyConditionExpression:    aws.String("#dept = :dept"),
		ExpressionAttributeNames:  map[string]string{"#dept": attrDepartmentID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":dept": &types.AttributeValueMemberS{Value: departmentID}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("query department members: %w", err)
	}
	return len(out.Items) > 0, nil
}
