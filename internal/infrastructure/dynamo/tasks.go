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

// TaskRepo provides typed DynamoDB operations for the tasks table.
type TaskRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewTaskRepo(client API, tableName string) *TaskRepo {
	return &TaskRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *TaskRepo) Put(ctx context.Context, t *domain.Task) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": attrTaskID},
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("task already exists: %w", domain.ErrConflict)
		}
		return fmt.Errorf("put task: %w", err)
	}
	return nil
}

func (r *TaskRepo) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrTaskID, taskID),
	})
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	var t domain.Task
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &t, nil
}

// Update applies a partial update and returns the stored task afterwards.
func (r *TaskRepo) Update(ctx context.Context, taskID string, updates map[string]interface{}) (*domain.Task, error) {
	ue, err := buildUpdateExpr(withUpdatedAt(updates, r.now()))
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrTaskID, taskID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  mergeNames(map[string]string{"#pk": attrTaskID}, ue.Names),
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	var t domain.Task
	if err := attributevalue.UnmarshalMap(out.Attributes, &t); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &t, nil
}

func (r *TaskRepo) Delete(ctx context.Context, taskID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(attrTaskID, taskID),
		ConditionExpression:      aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": attrTaskID},
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("task not found: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// List returns one page of tasks. An assignee or department filter is served
// by the matching GSI, newest first; otherwise the table is scanned.
func (r *TaskRepo) List(ctx context.Context, f domain.ListTasksFilter) ([]domain.Task, string, error) {
	start, err := decodeCursor(f.Cursor)
	if err != nil {
		return nil, "", err
	}

	terms := map[string]string{attrStatus: f.Status, attrPriority: f.Priority}
	var index, keyAttr, keyValue string
	switch {
	case f.AssignedTo != "":
		index, keyAttr, keyValue = indexAssignee, attrAssignedTo, f.AssignedTo
		terms[attrDepartmentID] = f.DepartmentID
	case f.DepartmentID != "":
		index, keyAttr, keyValue = indexDepartment, attrDepartmentID, f.DepartmentID
	}
	filter := buildEqualityFilter(terms)

	var (
		items []map[string]types.AttributeValue
		last  map[string]types.AttributeValue
	)
	if index != "" {
		in := &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(index),
			KeyConditionExpression:    aws.String("#k = :k"),
			ExpressionAttributeNames:  map[string]string{"#k": keyAttr},
			ExpressionAttributeValues: map[string]types.AttributeValue{":k": &types.AttributeValueMemberS{Value: keyValue}},
			ScanIndexForward:          aws.Bool(false),
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
			return nil, "", fmt.Errorf("query tasks: %w", err)
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
			return nil, "", fmt.Errorf("scan tasks: %w", err)
		}
		items, last = out.Items, out.LastEvaluatedKey
	}

	tasks := []domain.Task{}
	if err := attributevalue.UnmarshalListOfMaps(items, &tasks); err != nil {
		return nil, "", fmt.Errorf("unmarshal tasks: %w", err)
	}
	return tasks, encodeCursor(last), nil
}

type taskStatRow struct {
	Status  domain.TaskStatus `dynamodbav:"status"`
	DueDate *time.Time        `dynamodbav:"due_date"`
}

// Stats walks the whole table and counts tasks per status. A task is overdue
// when its due date has passed and it is not completed.
func (r *TaskRepo) Stats(ctx context.Context, now time.Time) (*domain.TaskStats, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		ProjectionExpression:     aws.String("#s, due_date"),
		ExpressionAttributeNames: map[string]string{"#s": attrStatus},
	})
	stats := &domain.TaskStats{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan task stats: %w", err)
		}
		var rows []taskStatRow
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &rows); err != nil {
			return nil, fmt.Errorf("unmarshal task stats: %w", err)
		}
		for _, row := range rows {
			stats.Total++
			switch row.Status {
			case domain.TaskStatusPending:
				stats.Pending++
			case domain.TaskStatusInProgress:
				stats.InProgress++
			case domain.TaskStatusCompleted:
				stats.Completed++
			}
			if row.Status != domain.TaskStatusCompleted && row.DueDate != nil && row.DueDate.Before(now) {
				stats.Overdue++
			}
		}
	}
	return stats, nil
}
