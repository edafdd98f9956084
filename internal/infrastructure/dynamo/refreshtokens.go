package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/auth-api/internal/domain"
)

// tokenAPI is the slice of the DynamoDB client the repo uses.
type tokenAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// RefreshTokenRepo provides typed DynamoDB operations for the refresh_tokens table.
// Rows are never deleted on rotation — they are flagged revoked so that a later
// presentation of the same token is distinguishable from an unknown token.
type RefreshTokenRepo struct {
	client    tokenAPI
	tableName string
}

func NewRefreshTokenRepo(client *dynamodb.Client, tableName string) *RefreshTokenRepo {
	return &RefreshTokenRepo{client: client, tableName: tableName}
}

func (r *RefreshTokenRepo) Put(ctx context.Context, t *domain.RefreshToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal refresh token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Get returns the row for a token value, revoked or not. Callers decide what a
// revoked row means.
func (r *RefreshTokenRepo) Get(ctx context.Context, token string) (*domain.RefreshToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("refresh token not found: %w", domain.ErrNotFound)
	}
	var t domain.RefreshToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Rotate atomically revokes oldToken and persists its replacement in a single
// TransactWriteItems call. The revoke carries a revoked=false condition, so
// when two refreshes race on the same token exactly one transaction commits;
// the loser gets domain.ErrReuseDetected and must run the reuse cascade.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, oldToken string, replacement *domain.RefreshToken) error {
	item, err := attributevalue.MarshalMap(replacement)
	if err != nil {
		return fmt.Errorf("marshal refresh token: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(r.tableName),
					Key:                 strKey("token", oldToken),
					UpdateExpression:    aws.String("SET #r = :t, #rb = :rb"),
					ConditionExpression: aws.String("#r = :f"),
					ExpressionAttributeNames: map[string]string{
						"#r":  fieldRevoked,
						"#rb": fieldReplacedBy,
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":t":  &types.AttributeValueMemberBOOL{Value: true},
						":f":  &types.AttributeValueMemberBOOL{Value: false},
						":rb": &types.AttributeValueMemberS{Value: replacement.Token},
					},
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(r.tableName),
					Item:      item,
				},
			},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) && conditionFailed(tce) {
			return fmt.Errorf("token already rotated: %w", domain.ErrReuseDetected)
		}
		return err
	}
	return nil
}

// Revoke flags a single token revoked. Idempotent — revoking an already
// revoked token succeeds; an unknown token is reported as ErrNotFound.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, token string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("token", token),
		UpdateExpression:    aws.String("SET #r = :t"),
		ConditionExpression: aws.String("attribute_exists(#tk)"),
		ExpressionAttributeNames: map[string]string{
			"#r":  fieldRevoked,
			"#tk": "token",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("refresh token not found: %w", domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// RevokeAllForUser revokes every token owned by userID, following the query
// through all result pages. Returns the first failure so callers can
// escalate — a partial revoke after reuse detection is a security hole, not
// a warning.
func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	var firstErr error
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("user_id-index"),
			KeyConditionExpression: aws.String("user_id = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return err
		}
		for _, item := range out.Items {
			tokAttr, ok := item["token"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if err := r.Revoke(ctx, tokAttr.Value); err != nil {
				slog.Error("failed to revoke token during bulk revoke", "user_id", userID, "err", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return firstErr
}

func conditionFailed(tce *types.TransactionCanceledException) bool {
	for _, reason := range tce.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
