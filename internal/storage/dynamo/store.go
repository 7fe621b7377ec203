// Package dynamo provides the shared lottery record store on DynamoDB. The
// whole state lives in one item; patches update only the attributes present,
// so concurrent operators overwrite each other per slice, last writer wins.
package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/logger"
	"luckydraw/internal/models"
	"luckydraw/internal/storage"
)

// DefaultRecordKey is the partition key of the lottery item.
const DefaultRecordKey = "lottery_app"

const partitionKey = "PK"

// API is the subset of the DynamoDB client the store needs.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Store persists the lottery record as a single DynamoDB item.
type Store struct {
	Client    API
	TableName string
	RecordKey string
}

// Options configures NewClient.
type Options struct {
	Region   string
	Endpoint string // e.g. http://localhost:8000 for DynamoDB Local
}

// NewClient builds a DynamoDB client from the default AWS credential chain.
func NewClient(ctx context.Context, opts Options) (*dynamodb.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// New returns a store for table, using DefaultRecordKey when recordKey is empty.
func New(client API, table, recordKey string) *Store {
	if strings.TrimSpace(recordKey) == "" {
		recordKey = DefaultRecordKey
	}
	return &Store{Client: client, TableName: table, RecordKey: recordKey}
}

func jsonTags(o *attributevalue.EncoderOptions) { o.TagKey = "json" }

func jsonTagsDecode(o *attributevalue.DecoderOptions) { o.TagKey = "json" }

func (s *Store) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		partitionKey: &types.AttributeValueMemberS{Value: s.RecordKey},
	}
}

// Load reads the lottery item.
func (s *Store) Load(ctx context.Context) (models.AppState, error) {
	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.TableName),
		Key:            s.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		logger.Errorf("GET lottery record failed: %v", err)
		return models.AppState{}, fmt.Errorf("get record %q: %w", s.RecordKey, err)
	}
	if out.Item == nil {
		return models.AppState{}, storage.ErrNotFound
	}
	delete(out.Item, partitionKey)

	var state models.AppState
	if err := attributevalue.UnmarshalMapWithOptions(out.Item, &state, jsonTagsDecode); err != nil {
		return models.AppState{}, fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
	}
	return state, nil
}

// Save overwrites the lottery item.
func (s *Store) Save(ctx context.Context, state models.AppState) error {
	item, err := attributevalue.MarshalMapWithOptions(state, jsonTags)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	item[partitionKey] = &types.AttributeValueMemberS{Value: s.RecordKey}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.TableName),
		Item:      item,
	})
	if err != nil {
		logger.Errorf("PUT lottery record failed: %v", err)
		return fmt.Errorf("put record %q: %w", s.RecordKey, err)
	}
	return nil
}

// Patch sets only the attributes present in patch. The item is created if it
// does not exist yet.
func (s *Store) Patch(ctx context.Context, patch models.StatePatch) error {
	if patch.IsEmpty() {
		return nil
	}
	input, err := s.updateInput(patch)
	if err != nil {
		return err
	}
	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		logger.Errorf("UPDATE lottery record failed: %v", err)
		return fmt.Errorf("update record %q: %w", s.RecordKey, err)
	}
	return nil
}

func (s *Store) updateInput(patch models.StatePatch) (*dynamodb.UpdateItemInput, error) {
	fields := map[string]any{}
	if patch.Participants != nil {
		fields["participants"] = *patch.Participants
	}
	if patch.Prizes != nil {
		fields["prizes"] = *patch.Prizes
	}
	if patch.Winners != nil {
		fields["winners"] = *patch.Winners
	}
	if patch.SiteConfig != nil {
		fields["siteConfig"] = *patch.SiteConfig
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	attrNames := make(map[string]string, len(names))
	attrValues := make(map[string]types.AttributeValue, len(names))
	sets := make([]string, 0, len(names))
	for _, name := range names {
		av, err := attributevalue.MarshalWithOptions(fields[name], jsonTags)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", name, err)
		}
		attrNames["#"+name] = name
		attrValues[":"+name] = av
		sets = append(sets, fmt.Sprintf("#%s = :%s", name, name))
	}

	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.TableName),
		Key:                       s.key(),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeNames:  attrNames,
		ExpressionAttributeValues: attrValues,
	}, nil
}

// Close is a no-op; the client holds no resources that need releasing.
func (s *Store) Close() error { return nil }
