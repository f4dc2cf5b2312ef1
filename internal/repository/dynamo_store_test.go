package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/events"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo answers each call with the matching func field.
type fakeDynamo struct {
	getItem    func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	putItem    func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	updateItem func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
	deleteItem func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error)
	scan       func(*dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
	transact   func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error)
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getItem(in)
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return f.putItem(in)
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return f.updateItem(in)
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return f.deleteItem(in)
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return f.scan(in)
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	return f.transact(in)
}

var testTables = Tables{
	Products:         "products",
	Orders:           "orders",
	StockAdjustments: "stockAdjustments",
}

func newTestDynamoStore(client *fakeDynamo) (*DynamoStore, *recordingNotifier) {
	notifier := &recordingNotifier{}
	return NewDynamoStore(client, testTables, clock.NewFixed(testEpoch), notifier), notifier
}

func productDoc(t *testing.T, p *domain.Product) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(newProductItem(p))
	require.NoError(t, err)
	return av
}

func TestDynamoStore_CreateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("conditional put", func(t *testing.T) {
		var captured *dynamodb.PutItemInput
		store, notifier := newTestDynamoStore(&fakeDynamo{
			putItem: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
				captured = in
				return &dynamodb.PutItemOutput{}, nil
			},
		})

		require.NoError(t, store.CreateProduct(ctx, widget(5)))
		assert.Equal(t, "products", aws.ToString(captured.TableName))
		assert.Contains(t, aws.ToString(captured.ConditionExpression), "attribute_not_exists")
		assert.Len(t, notifier.recorded(), 1)
	})

	t.Run("existing sku", func(t *testing.T) {
		store, notifier := newTestDynamoStore(&fakeDynamo{
			putItem: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{}
			},
		})

		assert.ErrorIs(t, store.CreateProduct(ctx, widget(5)), domain.ErrProductExists)
		assert.Empty(t, notifier.recorded())
	})
}

func TestDynamoStore_GetProduct(t *testing.T) {
	ctx := context.Background()

	store, _ := newTestDynamoStore(&fakeDynamo{
		getItem: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			sku := in.Key["sku"].(*types.AttributeValueMemberS).Value
			if sku != "W-1" {
				return &dynamodb.GetItemOutput{}, nil
			}
			return &dynamodb.GetItemOutput{Item: productDoc(t, widget(5))}, nil
		},
	})

	p, err := store.GetProduct(ctx, "W-1")
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, "2.5", p.Price.String())

	_, err = store.GetProduct(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestDynamoStore_AdjustQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("decrement", func(t *testing.T) {
		var captured *dynamodb.UpdateItemInput
		store, notifier := newTestDynamoStore(&fakeDynamo{
			updateItem: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				captured = in
				return &dynamodb.UpdateItemOutput{Attributes: productDoc(t, widget(4))}, nil
			},
		})

		change, err := store.AdjustQuantity(ctx, "W-1", -1)
		require.NoError(t, err)
		assert.Equal(t, &domain.QuantityChange{SKU: "W-1", PreviousStock: 5, NewStock: 4}, change)

		cond := aws.ToString(captured.ConditionExpression)
		assert.Contains(t, cond, "attribute_exists")
		assert.Contains(t, cond, ">=")
		assert.Equal(t, types.ReturnValuesOnConditionCheckFailureAllOld, captured.ReturnValuesOnConditionCheckFailure)
		assert.Len(t, notifier.recorded(), 1)
	})

	t.Run("increment has no stock condition", func(t *testing.T) {
		var captured *dynamodb.UpdateItemInput
		store, _ := newTestDynamoStore(&fakeDynamo{
			updateItem: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				captured = in
				return &dynamodb.UpdateItemOutput{Attributes: productDoc(t, widget(6))}, nil
			},
		})

		_, err := store.AdjustQuantity(ctx, "W-1", 1)
		require.NoError(t, err)
		assert.NotContains(t, aws.ToString(captured.ConditionExpression), ">=")
	})

	t.Run("insufficient stock", func(t *testing.T) {
		store, notifier := newTestDynamoStore(&fakeDynamo{
			updateItem: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{Item: productDoc(t, widget(0))}
			},
		})

		change, err := store.AdjustQuantity(ctx, "W-1", -1)
		require.ErrorIs(t, err, domain.ErrInsufficientStock)
		assert.Equal(t, 0, change.PreviousStock)
		assert.Equal(t, 0, change.NewStock)
		assert.Empty(t, notifier.recorded())
	})

	t.Run("missing product", func(t *testing.T) {
		store, _ := newTestDynamoStore(&fakeDynamo{
			updateItem: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{}
			},
		})

		_, err := store.AdjustQuantity(ctx, "NOPE", -1)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("transport failure is not mapped", func(t *testing.T) {
		boom := errors.New("connection reset")
		store, _ := newTestDynamoStore(&fakeDynamo{
			updateItem: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				return nil, boom
			},
		})

		_, err := store.AdjustQuantity(ctx, "W-1", -1)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, domain.ErrInsufficientStock)
	})
}

func TestDynamoStore_FindProductsByName_Paginates(t *testing.T) {
	calls := 0
	store, _ := newTestDynamoStore(&fakeDynamo{
		scan: func(in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
			calls++
			assert.Contains(t, aws.ToString(in.FilterExpression), "=")

			b := widget(1)
			b.SKU = "B-2"
			if in.ExclusiveStartKey == nil {
				return &dynamodb.ScanOutput{
					Items:            []map[string]types.AttributeValue{productDoc(t, b)},
					LastEvaluatedKey: skuKey("B-2"),
				}, nil
			}
			a := widget(2)
			a.SKU = "A-1"
			return &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{productDoc(t, a)}}, nil
		},
	})

	products, err := store.FindProductsByName(context.Background(), "Widget")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, products, 2)
	assert.Equal(t, "A-1", products[0].SKU)
	assert.Equal(t, "B-2", products[1].SKU)
}

func TestDynamoStore_ApplyAdjustment(t *testing.T) {
	ctx := context.Background()
	adj := &domain.StockAdjustment{
		ID:             "a-1",
		ProductID:      "W-1",
		ProductName:    "Widget",
		Quantity:       3,
		AdjustmentType: domain.AdjustmentRemove,
		Reason:         "damaged",
		Date:           testEpoch,
	}

	t.Run("writes both items in one transaction", func(t *testing.T) {
		var captured *dynamodb.TransactWriteItemsInput
		store, notifier := newTestDynamoStore(&fakeDynamo{
			transact: func(in *dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
				captured = in
				return &dynamodb.TransactWriteItemsOutput{}, nil
			},
		})

		change, err := store.ApplyAdjustment(ctx, adj, 10)
		require.NoError(t, err)
		assert.Equal(t, 7, change.NewStock)

		require.Len(t, captured.TransactItems, 2)
		assert.Equal(t, "products", aws.ToString(captured.TransactItems[0].Update.TableName))
		assert.Equal(t, "stockAdjustments", aws.ToString(captured.TransactItems[1].Put.TableName))
		assert.Equal(t, &types.AttributeValueMemberS{Value: "remove"}, captured.TransactItems[1].Put.Item["adjustmentType"])
		assert.Len(t, notifier.recorded(), 2)
	})

	t.Run("below zero never reaches the store", func(t *testing.T) {
		store, _ := newTestDynamoStore(&fakeDynamo{})

		_, err := store.ApplyAdjustment(ctx, adj, 2)
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	})

	cancelled := func(item map[string]types.AttributeValue) error {
		return &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{
				{Code: aws.String("ConditionalCheckFailed"), Item: item},
				{Code: aws.String("None")},
			},
		}
	}

	t.Run("quantity changed concurrently", func(t *testing.T) {
		store, notifier := newTestDynamoStore(&fakeDynamo{
			transact: func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
				return nil, cancelled(productDoc(t, widget(8)))
			},
		})

		_, err := store.ApplyAdjustment(ctx, adj, 10)
		assert.ErrorIs(t, err, domain.ErrStockConflict)
		assert.Empty(t, notifier.recorded())
	})

	t.Run("product deleted", func(t *testing.T) {
		store, _ := newTestDynamoStore(&fakeDynamo{
			transact: func(*dynamodb.TransactWriteItemsInput) (*dynamodb.TransactWriteItemsOutput, error) {
				return nil, cancelled(nil)
			},
		})

		_, err := store.ApplyAdjustment(ctx, adj, 10)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

func TestDynamoStore_Orders(t *testing.T) {
	ctx := context.Background()

	t.Run("mark fulfilled maps condition failures", func(t *testing.T) {
		existing := map[string]types.AttributeValue{
			"id":     &types.AttributeValueMemberS{Value: "o-1"},
			"status": &types.AttributeValueMemberS{Value: "fulfilled"},
		}
		store, _ := newTestDynamoStore(&fakeDynamo{
			updateItem: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
				if in.Key["id"].(*types.AttributeValueMemberS).Value == "o-1" {
					return nil, &types.ConditionalCheckFailedException{Item: existing}
				}
				return nil, &types.ConditionalCheckFailedException{}
			},
		})

		assert.ErrorIs(t, store.MarkOrderFulfilled(ctx, "o-1", testEpoch), domain.ErrOrderAlreadyFulfilled)
		assert.ErrorIs(t, store.MarkOrderFulfilled(ctx, "o-2", testEpoch), domain.ErrOrderNotFound)
	})

	t.Run("delete missing order", func(t *testing.T) {
		store, notifier := newTestDynamoStore(&fakeDynamo{
			deleteItem: func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{}
			},
		})

		assert.ErrorIs(t, store.DeleteOrder(ctx, "o-1"), domain.ErrOrderNotFound)
		assert.Empty(t, notifier.recorded())
	})

	t.Run("get missing order", func(t *testing.T) {
		store, _ := newTestDynamoStore(&fakeDynamo{
			getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{}, nil
			},
		})

		_, err := store.GetOrder(ctx, "o-1")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("create publishes change", func(t *testing.T) {
		store, notifier := newTestDynamoStore(&fakeDynamo{
			putItem: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
				assert.Equal(t, "orders", aws.ToString(in.TableName))
				return &dynamodb.PutItemOutput{}, nil
			},
		})

		require.NoError(t, store.CreateOrder(ctx, &domain.Order{ID: "o-1", Status: domain.OrderStatusPending, Date: testEpoch}))
		recorded := notifier.recorded()
		require.Len(t, recorded, 1)
		assert.Equal(t, events.CollectionOrders, recorded[0].Collection)
	})
}
