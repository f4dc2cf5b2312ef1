package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/events"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/clock"
	pkgconfig "github.com/cloud-wave-best-zizon/inventory-service/pkg/config"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

func NewDynamoDBClient(ctx context.Context, cfg *pkgconfig.Config) (*dynamodb.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.AWSRegion),
	}
	// dynamodb-local accepts any credentials
	if cfg.DynamoDBEndpoint != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	}), nil
}

type Tables struct {
	Products         string
	Orders           string
	StockAdjustments string
}

type DynamoStore struct {
	client   DynamoAPI
	tables   Tables
	clock    clock.Clock
	notifier events.Notifier
}

func NewDynamoStore(client DynamoAPI, tables Tables, clk clock.Clock, notifier events.Notifier) *DynamoStore {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &DynamoStore{
		client:   client,
		tables:   tables,
		clock:    clk,
		notifier: notifier,
	}
}

func (r *DynamoStore) publish(c events.Collection, key string, op events.Op) {
	r.notifier.Publish(events.ChangeEvent{Collection: c, Key: key, Op: op, At: r.clock.Now()})
}

func skuKey(sku string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"sku": &types.AttributeValueMemberS{Value: sku},
	}
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func isConditionFailed(err error) (*types.ConditionalCheckFailedException, bool) {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ccf, true
	}
	return nil, false
}

func (r *DynamoStore) CreateProduct(ctx context.Context, product *domain.Product) error {
	av, err := attributevalue.MarshalMap(newProductItem(product))
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("sku"))).
		Build()
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tables.Products),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if _, ok := isConditionFailed(err); ok {
			return domain.ErrProductExists
		}
		return fmt.Errorf("failed to put product: %w", err)
	}

	r.publish(events.CollectionProducts, product.SKU, events.OpCreate)
	return nil
}

func (r *DynamoStore) GetProduct(ctx context.Context, sku string) (*domain.Product, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Products),
		Key:            skuKey(sku),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if result.Item == nil {
		return nil, domain.ErrProductNotFound
	}

	var item productItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	return item.toDomain(), nil
}

func (r *DynamoStore) FindProductsByName(ctx context.Context, name string) ([]*domain.Product, error) {
	filter := expression.Name("name").Equal(expression.Value(name))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, err
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tables.Products),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	}

	var items []productItem
	if err := r.scanAll(ctx, input, &items); err != nil {
		return nil, fmt.Errorf("failed to scan products by name: %w", err)
	}
	return productsFromItems(items), nil
}

func (r *DynamoStore) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	var items []productItem
	err := r.scanAll(ctx, &dynamodb.ScanInput{TableName: aws.String(r.tables.Products)}, &items)
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}
	return productsFromItems(items), nil
}

func productsFromItems(items []productItem) []*domain.Product {
	out := make([]*domain.Product, 0, len(items))
	for _, it := range items {
		out = append(out, it.toDomain())
	}
	sortProductsBySKU(out)
	return out
}

// scanAll walks every page of a scan and unmarshals the items into out,
// which must point to a slice.
func (r *DynamoStore) scanAll(ctx context.Context, input *dynamodb.ScanInput, out interface{}) error {
	var all []map[string]types.AttributeValue
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		all = append(all, page.Items...)
	}
	return attributevalue.UnmarshalListOfMaps(all, out)
}

func (r *DynamoStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	update := expression.Set(expression.Name("name"), expression.Value(product.Name)).
		Set(expression.Name("price"), expression.Value(decimalAttr{product.Price})).
		Set(expression.Name("quantity"), expression.Value(product.Quantity)).
		Set(expression.Name("reorderPoint"), expression.Value(product.ReorderPoint)).
		Set(expression.Name("updatedAt"), expression.Value(r.clock.Now()))

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("sku"))).
		Build()
	if err != nil {
		return nil, err
	}

	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tables.Products),
		Key:                       skuKey(product.SKU),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if _, ok := isConditionFailed(err); ok {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	var item productItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}

	r.publish(events.CollectionProducts, product.SKU, events.OpUpdate)
	return item.toDomain(), nil
}

// AdjustQuantity applies delta in a single conditional update, so the
// existence and non-negative checks hold even under concurrent writers.
func (r *DynamoStore) AdjustQuantity(ctx context.Context, sku string, delta int) (*domain.QuantityChange, error) {
	update := expression.Set(
		expression.Name("quantity"),
		expression.Plus(expression.Name("quantity"), expression.Value(delta)),
	).Set(
		expression.Name("updatedAt"),
		expression.Value(r.clock.Now()),
	)

	condition := expression.AttributeExists(expression.Name("sku"))
	if delta < 0 {
		// 재고가 충분한 경우에만 업데이트
		condition = condition.And(expression.GreaterThanEqual(
			expression.Name("quantity"),
			expression.Value(-delta),
		))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(condition).
		Build()
	if err != nil {
		return nil, err
	}

	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tables.Products),
		Key:                                 skuKey(sku),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		if ccf, ok := isConditionFailed(err); ok {
			if len(ccf.Item) == 0 {
				return nil, domain.ErrProductNotFound
			}
			var current productItem
			if uerr := attributevalue.UnmarshalMap(ccf.Item, &current); uerr != nil {
				return nil, domain.ErrInsufficientStock
			}
			return &domain.QuantityChange{
				SKU:           sku,
				PreviousStock: current.Quantity,
				NewStock:      current.Quantity,
			}, domain.ErrInsufficientStock
		}
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}

	var updated productItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &updated); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}

	r.publish(events.CollectionProducts, sku, events.OpUpdate)
	return &domain.QuantityChange{
		SKU:           sku,
		PreviousStock: updated.Quantity - delta,
		NewStock:      updated.Quantity,
	}, nil
}

// ApplyAdjustment writes the new quantity and the audit record in one
// transaction. The product write only succeeds if the quantity still equals
// expectedQuantity.
func (r *DynamoStore) ApplyAdjustment(ctx context.Context, adj *domain.StockAdjustment, expectedQuantity int) (*domain.QuantityChange, error) {
	newQuantity := expectedQuantity + adj.AdjustmentType.Delta(adj.Quantity)
	if newQuantity < 0 {
		return nil, domain.ErrInsufficientStock
	}

	update := expression.Set(expression.Name("quantity"), expression.Value(newQuantity)).
		Set(expression.Name("updatedAt"), expression.Value(adj.Date))
	condition := expression.AttributeExists(expression.Name("sku")).
		And(expression.Name("quantity").Equal(expression.Value(expectedQuantity)))

	productExpr, err := expression.NewBuilder().WithUpdate(update).WithCondition(condition).Build()
	if err != nil {
		return nil, err
	}

	av, err := attributevalue.MarshalMap(newAdjustmentItem(adj))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stock adjustment: %w", err)
	}
	putExpr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("id"))).
		Build()
	if err != nil {
		return nil, err
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:                           aws.String(r.tables.Products),
					Key:                                 skuKey(adj.ProductID),
					UpdateExpression:                    productExpr.Update(),
					ConditionExpression:                 productExpr.Condition(),
					ExpressionAttributeNames:            productExpr.Names(),
					ExpressionAttributeValues:           productExpr.Values(),
					ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
				},
			},
			{
				Put: &types.Put{
					TableName:                aws.String(r.tables.StockAdjustments),
					Item:                     av,
					ConditionExpression:      putExpr.Condition(),
					ExpressionAttributeNames: putExpr.Names(),
				},
			},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) && len(tce.CancellationReasons) > 0 {
			reason := tce.CancellationReasons[0]
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				if len(reason.Item) == 0 {
					return nil, domain.ErrProductNotFound
				}
				return nil, domain.ErrStockConflict
			}
		}
		return nil, fmt.Errorf("failed to apply stock adjustment: %w", err)
	}

	r.publish(events.CollectionProducts, adj.ProductID, events.OpUpdate)
	r.publish(events.CollectionStockAdjustments, adj.ID, events.OpCreate)
	return &domain.QuantityChange{
		SKU:           adj.ProductID,
		PreviousStock: expectedQuantity,
		NewStock:      newQuantity,
	}, nil
}

func (r *DynamoStore) ListAdjustments(ctx context.Context) ([]*domain.StockAdjustment, error) {
	var items []adjustmentItem
	err := r.scanAll(ctx, &dynamodb.ScanInput{TableName: aws.String(r.tables.StockAdjustments)}, &items)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock adjustments: %w", err)
	}

	out := make([]*domain.StockAdjustment, 0, len(items))
	for _, it := range items {
		out = append(out, it.toDomain())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *DynamoStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	av, err := attributevalue.MarshalMap(newOrderItem(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tables.Orders),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put order: %w", err)
	}

	r.publish(events.CollectionOrders, order.ID, events.OpCreate)
	return nil
}

func (r *DynamoStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Orders),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if result.Item == nil {
		return nil, domain.ErrOrderNotFound
	}

	var item orderItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return item.toDomain(), nil
}

func (r *DynamoStore) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	var items []orderItem
	err := r.scanAll(ctx, &dynamodb.ScanInput{TableName: aws.String(r.tables.Orders)}, &items)
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}

	out := make([]*domain.Order, 0, len(items))
	for _, it := range items {
		out = append(out, it.toDomain())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// MarkOrderFulfilled moves a pending order to fulfilled. The status check is
// part of the write so an order cannot be fulfilled twice.
func (r *DynamoStore) MarkOrderFulfilled(ctx context.Context, id string, at time.Time) error {
	update := expression.Set(expression.Name("status"), expression.Value(string(domain.OrderStatusFulfilled))).
		Set(expression.Name("fulfilledAt"), expression.Value(at))
	condition := expression.AttributeExists(expression.Name("id")).
		And(expression.Name("status").Equal(expression.Value(string(domain.OrderStatusPending))))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(condition).Build()
	if err != nil {
		return err
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tables.Orders),
		Key:                                 idKey(id),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		if ccf, ok := isConditionFailed(err); ok {
			if len(ccf.Item) == 0 {
				return domain.ErrOrderNotFound
			}
			return domain.ErrOrderAlreadyFulfilled
		}
		return fmt.Errorf("failed to update order status: %w", err)
	}

	r.publish(events.CollectionOrders, id, events.OpUpdate)
	return nil
}

func (r *DynamoStore) DeleteOrder(ctx context.Context, id string) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("id"))).
		Build()
	if err != nil {
		return err
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tables.Orders),
		Key:                      idKey(id),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		if _, ok := isConditionFailed(err); ok {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("failed to delete order: %w", err)
	}

	r.publish(events.CollectionOrders, id, events.OpDelete)
	return nil
}
