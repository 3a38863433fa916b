package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/rs/zerolog"
)

// dynamoAPI is the subset of *dynamodb.Client the store needs
type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// metricsItem is the DynamoDB item layout: one item per storage key
type metricsItem struct {
	StorageKey string         `dynamodbav:"StorageKey"` // partition key
	Snapshot   types.Snapshot `dynamodbav:"Snapshot"`
	UpdatedAt  string         `dynamodbav:"UpdatedAt"` // RFC3339
}

// DynamoDBStore implements MetricsStore using AWS DynamoDB
type DynamoDBStore struct {
	client dynamoAPI
	table  string
	key    string
	logger zerolog.Logger
}

// NewDynamoDBStore creates a new DynamoDB store
func NewDynamoDBStore(ctx context.Context, cfg Config, logger zerolog.Logger) (*DynamoDBStore, error) {
	var client *dynamodb.Client

	if cfg.DynamoMode == DynamoModeLocal {
		// Local mode builds the client directly: LoadDefaultConfig probes IMDS,
		// which hangs on EC2 hosts when static credentials are intended.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.DynamoRegion,
			BaseEndpoint: aws.String(cfg.DynamoEndpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DynamoRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	if cfg.DynamoMode == DynamoModeLocal {
		if err := CreateTableIfNotExist(ctx, client, cfg.MetricsTable, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("mode", string(cfg.DynamoMode)).
		Str("region", cfg.DynamoRegion).
		Str("table", cfg.MetricsTable).
		Msg("DynamoDB store initialized")

	return newDynamoDBStore(client, cfg.MetricsTable, cfg.StorageKey, logger), nil
}

func newDynamoDBStore(client dynamoAPI, table, key string, logger zerolog.Logger) *DynamoDBStore {
	return &DynamoDBStore{
		client: client,
		table:  table,
		key:    key,
		logger: logger.With().Str("component", "dynamodb_store").Logger(),
	}
}

func (s *DynamoDBStore) itemKey() map[string]dbtypes.AttributeValue {
	return map[string]dbtypes.AttributeValue{
		"StorageKey": &dbtypes.AttributeValueMemberS{Value: s.key},
	}
}

func (s *DynamoDBStore) Load(ctx context.Context) (*types.Snapshot, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.itemKey(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item metricsItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics item: %w", err)
	}
	return &item.Snapshot, nil
}

func (s *DynamoDBStore) Save(ctx context.Context, snapshot types.Snapshot) error {
	item, err := attributevalue.MarshalMap(metricsItem{
		StorageKey: s.key,
		Snapshot:   snapshot,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal metrics item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save metrics item: %w", err)
	}
	return nil
}

func (s *DynamoDBStore) Clear(ctx context.Context) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.itemKey(),
	})
	if err != nil {
		return fmt.Errorf("failed to delete metrics item: %w", err)
	}
	return nil
}

func (s *DynamoDBStore) Close() error { return nil }
