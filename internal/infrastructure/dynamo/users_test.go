package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-taskboard-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_Create_ClaimsEmailInSameTransaction(t *testing.T) {
	api := &mockAPI{}
	repo := NewUserRepo(api, "users", "user_emails")
	u := &domain.User{UserID: "u1", Email: "a@example.com", Role: domain.RoleUser, Status: domain.UserStatusActive, FirstLogin: true}

	api.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		if len(in.TransactItems) != 2 {
			return false
		}
		userPut, emailPut := in.TransactItems[0].Put, in.TransactItems[1].Put
		_, hasDept := userPut.Item["department_id"]
		return *userPut.TableName == "users" &&
			*emailPut.TableName == "user_emails" &&
			*emailPut.ConditionExpression == "attribute_not_exists(#pk)" &&
			!hasDept
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	require.NoError(t, repo.Create(context.Background(), u))
	api.AssertExpectations(t)
}

func TestUserRepo_Create_ConditionFailureIsConflict(t *testing.T) {
	api := &mockAPI{}
	repo := NewUserRepo(api, "users", "user_emails")
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("None")}, {Code: aws.String("ConditionalCheckFailed")}},
	})

	err := repo.Create(context.Background(), &domain.User{UserID: "u1", Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserRepo_GetByEmail_ResolvesClaim(t *testing.T) {
	api := &mockAPI{}
	repo := NewUserRepo(api, "users", "user_emails")
	claim, _ := attributevalue.MarshalMap(emailItem{Email: "a@example.com", UserID: "u1"})
	user, _ := attributevalue.MarshalMap(domain.User{UserID: "u1", Email: "a@example.com", Role: domain.RoleAdmin})

	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return *in.TableName == "user_emails" && *in.ConsistentRead
	})).Return(&dynamodb.GetItemOutput{Item: claim}, nil)
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return *in.TableName == "users"
	})).Return(&dynamodb.GetItemOutput{Item: user}, nil)

	got, err := repo.GetByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, domain.RoleAdmin, got.Role)
}

func TestUserRepo_GetByEmail_UnknownIsNotFound(t *testing.T) {
	api := &mockAPI{}
	repo := NewUserRepo(api, "users", "user_emails")
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_Update_ClearsOTPWithRemove(t *testing.T) {
	api := &mockAPI{}
	repo := NewUserRepo(api, "users", "user_emails")
	repo.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return *in.UpdateExpression == "SET #f0 = :v0, #f3 = :v3 REMOVE #f1, #f2" &&
			*in.ConditionExpression == "attribute_exists(#pk)" &&
			in.ExpressionAttributeNames["#pk"] == "user_id"
	})).Return(&dynamodb.UpdateItemOutput{}, nil)

	err := repo.Update(context.Background(), "u1", map[string]interface{}{
		"first_login": false,
		"otp":         nil,
		"otp_expiry":  nil,
	})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestUserRepo_Update_LeavesCallerMapUntouched(t *testing.T) {
	api := &mockAPI{}
	repo := NewUserRepo(api, "users", "user_emails")
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(&dynamodb.UpdateItemOutput{}, nil)

	updates := map[string]interface{}{"name": "Ana"}
	require.NoError(t, repo.Update(context.Background(), "u1", updates))
	assert.Equal(t, map[string]interface{}{"name": "Ana"}, updates)
}

func TestUserRepo_Update_MissingUserIsNotFound(t *testing.T) {
	api := &mockAPI{}
	repo := NewUserRepo(api, "users", "user_emails")
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

	err := repo.Update(context.Background(), "ghost", map[string]interface{}{"name": "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_ScanPage_DepartmentUsesIndex(t *testing.T) {
	api := &mockAPI{}
	repo := NewUserRepo(api, "users", "user_emails")
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return *in.IndexName == indexDepartment && *in.FilterExpression == "#q0 = :q0" && *in.Limit == 10
	})).Return(&dynamodb.QueryOutput{
		LastEvaluatedKey: map[string]types.AttributeValue{"user_id": &types.AttributeValueMemberS{Value: "u9"}},
	}, nil)

	users, next, err := repo.ScanPage(context.Background(), domain.ListUsersFilter{DepartmentID: "d1", Role: "admin", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NotEmpty(t, next)
}

func TestUserRepo_HasDepartmentMembers(t *testing.T) {
	api := &mockAPI{}
	repo := NewUserRepo(api, "users", "user_emails")
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{"user_id": &types.AttributeValueMemberS{Value: "u1"}}},
	}, nil).Once()
	api.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("throttled")).Once()

	ok, err := repo.HasDepartmentMembers(context.Background(), "d1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.HasDepartmentMembers(context.Background(), "d1")
	assert.ErrorContains(t, err, "throttled")
}
