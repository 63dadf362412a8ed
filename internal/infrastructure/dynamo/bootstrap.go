package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-taskboard-api/internal/config"
)

// TableCreator is the subset of the DynamoDB client Bootstrap needs.
type TableCreator interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Bootstrap creates all DynamoDB tables and GSIs if they don't already exist.
// Safe to call on every startup; existing tables are skipped.
func Bootstrap(ctx context.Context, client TableCreator, tables config.DynamoTables) error {
	var errs []error
	for _, in := range tableDefinitions(tables) {
		if err := createTable(ctx, client, in); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func tableDefinitions(tables config.DynamoTables) []*dynamodb.CreateTableInput {
	return []*dynamodb.CreateTableInput{
		{
			TableName:   aws.String(tables.Users),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				strAttr(attrUserID),
				strAttr(attrDepartmentID),
			},
			KeySchema: hashKey(attrUserID),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexDepartment, attrDepartmentID, ""),
			},
		},
		{
			TableName:            aws.String(tables.UserEmails),
			BillingMode:          types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{strAttr(attrEmail)},
			KeySchema:            hashKey(attrEmail),
		},
		{
			TableName:   aws.String(tables.Tasks),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				strAttr(attrTaskID),
				strAttr(attrAssignedTo),
				strAttr(attrDepartmentID),
				strAttr(attrCreatedAt),
			},
			KeySchema: hashKey(attrTaskID),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexAssignee, attrAssignedTo, attrCreatedAt),
				gsi(indexDepartment, attrDepartmentID, attrCreatedAt),
			},
		},
		{
			TableName:            aws.String(tables.Departments),
			BillingMode:          types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{strAttr(attrDepartmentID)},
			KeySchema:            hashKey(attrDepartmentID),
		},
		{
			TableName:   aws.String(tables.Attachments),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				strAttr(attrAttachmentID),
				strAttr(attrTaskID),
				strAttr(attrCreatedAt),
			},
			KeySchema: hashKey(attrAttachmentID),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexTask, attrTaskID, attrCreatedAt),
			},
		},
	}
}

func strAttr(name string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
}

func hashKey(name string) []types.KeySchemaElement {
	return []types.KeySchemaElement{{AttributeName: aws.String(name), KeyType: types.KeyTypeHash}}
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client TableCreator, input *dynamodb.CreateTableInput) error {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if errors.As(err, &riue) {
			slog.Debug("table already exists", "table", *input.TableName)
			return nil
		}
		return fmt.Errorf("create table %s: %w", *input.TableName, err)
	}
	slog.Info("created table", "table", *input.TableName)
	return nil
}
