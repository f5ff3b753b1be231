package orders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo evaluates just the two condition expressions DynamoStore emits.
type fakeDynamo struct {
	mu        sync.Mutex
	items     map[string]map[string]types.AttributeValue
	puts      int
	beforePut func(f *fakeDynamo)
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(av map[string]types.AttributeValue) string {
	return av["reference"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.beforePut != nil {
		hook := f.beforePut
		f.beforePut = nil
		hook(f)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++

	k := keyOf(in.Item)
	cur, exists := f.items[k]
	cond := aws.ToString(in.ConditionExpression)
	switch {
	case strings.HasPrefix(cond, "attribute_not_exists"):
		if exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	case strings.HasPrefix(cond, "version ="):
		want := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberN).Value
		if !exists || cur["version"].(*types.AttributeValueMemberN).Value != want {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("version")}
		}
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := in.ExpressionAttributeValues[":c"].(*types.AttributeValueMemberS).Value
	for _, it := range f.items {
		if c, ok := it["verification_code"].(*types.AttributeValueMemberS); ok && c.Value == want {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{it}}, nil
		}
	}
	return &dynamodb.QueryOutput{}, nil
}

func TestDynamoStoreLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	l := NewLedger(NewDynamoStore(fake, "orders", "verification_code-index"),
		WithClock(tickingClock()),
		WithCodeGenerator(func(string) (string, error) { return "SEN-DD00FF11", nil }))

	_, _, err := l.Transition(ctx, "cart-7", StatusPaid)
	require.NoError(t, err)
	_, err = l.RegisterDraft(ctx, "cart-7", []string{"Bordadora x1"})
	require.NoError(t, err)

	rec, err := l.GetByReference(ctx, "cart-7")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, rec.Status)
	assert.Equal(t, []string{"Bordadora x1"}, rec.Items)
	require.Len(t, rec.History, 2)
	assert.Equal(t, StatusPaid, rec.History[0].Status)

	v := fake.items["cart-7"]["version"].(*types.AttributeValueMemberN).Value
	assert.Equal(t, "2", v)

	byCode, err := l.GetByVerificationCode(ctx, "sen-dd00ff11")
	require.NoError(t, err)
	assert.Equal(t, "cart-7", byCode.Reference)
}

func TestDynamoStoreRetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "orders", "idx")
	l := NewLedger(store, WithClock(tickingClock()))

	_, err := l.Ensure(ctx, "cart-1")
	require.NoError(t, err)

	// a concurrent writer lands between our read and our put
	fake.beforePut = func(f *fakeDynamo) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.items["cart-1"]["version"] = &types.AttributeValueMemberN{Value: "7"}
	}
	rec, _, err := l.Transition(ctx, "cart-1", StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rec.Status)
	assert.Equal(t, "8", fake.items["cart-1"]["version"].(*types.AttributeValueMemberN).Value)
}

func TestDynamoStoreGivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewDynamoStore(conflictingDynamo{newFakeDynamo()}, "orders", "idx")

	_, err := store.Mutate(ctx, "cart-1",
		func() (Record, error) { return newRecord("cart-1", "SEN-X", testNow), nil },
		func(*Record) bool { return true })
	assert.ErrorIs(t, err, ErrConcurrentWrite)
}

func TestDynamoStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewDynamoStore(newFakeDynamo(), "orders", "idx")

	_, err := store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetByVerificationCode(ctx, "SEN-NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoStoreSurfacesClientErrors(t *testing.T) {
	store := NewDynamoStore(failingDynamo{newFakeDynamo()}, "orders", "idx")
	_, err := store.Get(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

type conflictingDynamo struct{ *fakeDynamo }

func (conflictingDynamo) PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return nil, &types.ConditionalCheckFailedException{Message: aws.String("always")}
}

type failingDynamo struct{ *fakeDynamo }

func (failingDynamo) GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return nil, errors.New("throttled")
}

type fakeTableCreator struct {
	in  *dynamodb.CreateTableInput
	err error
}

func (f *fakeTableCreator) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.in = in
	return &dynamodb.CreateTableOutput{}, f.err
}

func TestCreateDynamoTable(t *testing.T) {
	f := &fakeTableCreator{}
	created, err := CreateDynamoTable(context.Background(), f, "orders", "verification_code-index")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "orders", aws.ToString(f.in.TableName))
	require.Len(t, f.in.GlobalSecondaryIndexes, 1)
	assert.Equal(t, "verification_code-index", aws.ToString(f.in.GlobalSecondaryIndexes[0].IndexName))

	f.err = &types.ResourceInUseException{Message: aws.String("exists")}
	created, err = CreateDynamoTable(context.Background(), f, "orders", "verification_code-index")
	require.NoError(t, err)
	assert.False(t, created)

	f.err = errors.New("access denied")
	_, err = CreateDynamoTable(context.Background(), f, "orders", "verification_code-index")
	assert.Error(t, err)
}
