package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const dynamoMaxAttempts = 5

// DynamoAPI is the subset of *dynamodb.Client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type dynamoHistoryEntry struct {
	Status    string    `dynamodbav:"status"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

type dynamoItem struct {
	Reference        string               `dynamodbav:"reference"`
	Status           string               `dynamodbav:"status"`
	UpdatedAt        time.Time            `dynamodbav:"updated_at"`
	History          []dynamoHistoryEntry `dynamodbav:"history"`
	VerificationCode string               `dynamodbav:"verification_code"`
	Items            []string             `dynamodbav:"items"`
	Version          int64                `dynamodbav:"version"`
}

// DynamoStore keeps one item per reference (partition key "reference") and
// serializes writers with a conditional put on "version". Code lookups go
// through a GSI on "verification_code".
type DynamoStore struct {
	client    DynamoAPI
	table     string
	codeIndex string
}

func NewDynamoDBClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func NewDynamoStore(client DynamoAPI, table, codeIndex string) *DynamoStore {
	return &DynamoStore{client: client, table: table, codeIndex: codeIndex}
}

func (s *DynamoStore) Mutate(ctx context.Context, ref string, seed func() (Record, error), fn func(rec *Record) bool) (Record, error) {
	for attempt := 0; attempt < dynamoMaxAttempts; attempt++ {
		item, found, err := s.load(ctx, ref)
		if err != nil {
			return Record{}, err
		}

		var rec Record
		put := &dynamodb.PutItemInput{TableName: aws.String(s.table)}
		if !found {
			if rec, err = seed(); err != nil {
				return Record{}, err
			}
			fn(&rec)
			put.ConditionExpression = aws.String("attribute_not_exists(reference)")
		} else {
			rec = fromItem(item)
			if !fn(&rec) {
				return rec.Clone(), nil
			}
			put.ConditionExpression = aws.String("version = :v")
			put.ExpressionAttributeValues = map[string]types.AttributeValue{
				":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(item.Version, 10)},
			}
		}

		next := toItem(rec, item.Version+1)
		av, err := attributevalue.MarshalMap(next)
		if err != nil {
			return Record{}, fmt.Errorf("marshal order item: %w", err)
		}
		put.Item = av

		_, err = s.client.PutItem(ctx, put)
		if err == nil {
			return rec.Clone(), nil
		}
		var ccf *types.ConditionalCheckFailedException
		if !errors.As(err, &ccf) {
			return Record{}, fmt.Errorf("put order item: %w", err)
		}
	}
	return Record{}, ErrConcurrentWrite
}

func (s *DynamoStore) Get(ctx context.Context, ref string) (Record, error) {
	item, found, err := s.load(ctx, ref)
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, ErrNotFound
	}
	return fromItem(item), nil
}

func (s *DynamoStore) GetByVerificationCode(ctx context.Context, code string) (Record, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.codeIndex),
		KeyConditionExpression: aws.String("verification_code = :c"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: code},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return Record{}, fmt.Errorf("query verification code: %w", err)
	}
	if len(out.Items) == 0 {
		return Record{}, ErrNotFound
	}
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return Record{}, fmt.Errorf("unmarshal order item: %w", err)
	}
	return fromItem(item), nil
}

func (s *DynamoStore) load(ctx context.Context, ref string) (dynamoItem, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"reference": &types.AttributeValueMemberS{Value: ref},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return dynamoItem{}, false, fmt.Errorf("get order item: %w", err)
	}
	if len(out.Item) == 0 {
		return dynamoItem{}, false, nil
	}
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return dynamoItem{}, false, fmt.Errorf("unmarshal order item: %w", err)
	}
	return item, true, nil
}

func toItem(r Record, version int64) dynamoItem {
	h := make([]dynamoHistoryEntry, len(r.History))
	for i, e := range r.History {
		h[i] = dynamoHistoryEntry{Status: string(e.Status), UpdatedAt: e.UpdatedAt}
	}
	return dynamoItem{
		Reference:        r.Reference,
		Status:           string(r.Status),
		UpdatedAt:        r.UpdatedAt,
		History:          h,
		VerificationCode: r.VerificationCode,
		Items:            append([]string{}, r.Items...),
		Version:          version,
	}
}

func fromItem(it dynamoItem) Record {
	h := make([]HistoryEntry, len(it.History))
	for i, e := range it.History {
		h[i] = HistoryEntry{Status: Status(e.Status), UpdatedAt: e.UpdatedAt}
	}
	return Record{
		Reference:        it.Reference,
		Status:           Status(it.Status),
		UpdatedAt:        it.UpdatedAt,
		History:          h,
		VerificationCode: it.VerificationCode,
		Items:            it.Items,
	}.Clone()
}
