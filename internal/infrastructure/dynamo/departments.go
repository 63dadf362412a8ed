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

// DepartmentRepo provides typed DynamoDB operations for the departments table.
type DepartmentRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewDepartmentRepo(client API, tableName string) *DepartmentRepo {
	return &DepartmentRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *DepartmentRepo) Put(ctx context.Context, d *domain.Department) error {
	item, err := attributevalue.MarshalMap(d)
	if err != nil {
		return fmt.Errorf("marshal department: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put department: %w", err)
	}
	return nil
}

func (r *DepartmentRepo) Get(ctx context.Context, departmentID string) (*domain.Department, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrDepartmentID, departmentID),
	})
	if err != nil {
		return nil, fmt.Errorf("get department: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("department not found: %w", domain.ErrNotFound)
	}
	var d domain.Department
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, fmt.Errorf("unmarshal department: %w", err)
	}
	return &d, nil
}

// Scan returns every department. The table is small enough to read whole.
func (r *DepartmentRepo) Scan(ctx context.Context) ([]domain.Department, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	departments := []domain.Department{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan departments: %w", err)
		}
		var batch []domain.Department
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal departments: %w", err)
		}
		departments = append(departments, batch...)
	}
	return departments, nil
}

// FindByName returns the department with the given name, or ErrNotFound.
func (r *DepartmentRepo) FindByName(ctx context.Context, name string) (*domain.Department, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("#n = :n"),
		ExpressionAttributeNames:  map[string]string{"#n": attrName},
		ExpressionAttributeValues: map[string]types.AttributeValue{":n": &types.AttributeValueMemberS{Value: name}},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan departments: %w", err)
		}
		if len(page.Items) > 0 {
			var d domain.Department
			if err := attributevalue.UnmarshalMap(page.Items[0], &d); err != nil {
				return nil, fmt.Errorf("unmarshal department: %w", err)
			}
			return &d, nil
		}
	}
	return nil, fmt.Errorf("department not found: %w", domain.ErrNotFound)
}

func (r *DepartmentRepo) Update(ctx context.Context, departmentID string, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(withUpdatedAt(updates, r.now()))
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrDepartmentID, departmentID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  mergeNames(map[string]string{"#pk": attrDepartmentID}, ue.Names),
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("department not found: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}

// HardDelete permanently removes a department item.
func (r *DepartmentRepo) HardDelete(ctx context.Context, departmentID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrDepartmentID, departmentID),
	})
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return nil
}
