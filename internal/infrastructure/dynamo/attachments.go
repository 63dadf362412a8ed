package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-taskboard-api/internal/domain"
)

// AttachmentRepo provides typed DynamoDB operations for the task_attachments table.
type AttachmentRepo struct {
	client    API
	tableName string
}

func NewAttachmentRepo(client API, tableName string) *AttachmentRepo {
	return &AttachmentRepo{client: client, tableName: tableName}
}

func (r *AttachmentRepo) Put(ctx context.Context, a *domain.Attachment) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal attachment: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put attachment: %w", err)
	}
	return nil
}

func (r *AttachmentRepo) Get(ctx context.Context, attachmentID string) (*domain.Attachment, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrAttachmentID, attachmentID),
	})
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("attachment not found: %w", domain.ErrNotFound)
	}
	var a domain.Attachment
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal attachment: %w", err)
	}
	return &a, nil
}

// ListByTask returns all attachments of a task, oldest first.
func (r *AttachmentRepo) ListByTask(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexTask),
		KeyConditionExpression:    aws.String("task_id = :tid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":tid": &types.AttributeValueMemberS{Value: taskID}},
	})
	attachments := []domain.Attachment{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query attachments: %w", err)
		}
		var batch []domain.Attachment
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
		attachments = append(attachments, batch...)
	}
	return attachments, nil
}

func (r *AttachmentRepo) Delete(ctx context.Context, attachmentID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrAttachmentID, attachmentID),
	})
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}
