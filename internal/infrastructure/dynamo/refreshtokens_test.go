package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTokenAPI serves canned query pages and records which tokens get revoked.
type stubTokenAPI struct {
	tokenAPI
	pages   []*dynamodb.QueryOutput
	queries []*dynamodb.QueryInput
	revoked []string
}

func (s *stubTokenAPI) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	s.queries = append(s.queries, params)
	if len(s.pages) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	page := s.pages[0]
	s.pages = s.pages[1:]
	return page, nil
}

func (s *stubTokenAPI) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	tok := params.Key["token"].(*types.AttributeValueMemberS).Value
	s.revoked = append(s.revoked, tok)
	return &dynamodb.UpdateItemOutput{}, nil
}

func tokenPage(lastKey string, tokens ...string) *dynamodb.QueryOutput {
	out := &dynamodb.QueryOutput{}
	for _, tok := range tokens {
		out.Items = append(out.Items, map[string]types.AttributeValue{
			"token": &types.AttributeValueMemberS{Value: tok},
		})
	}
	if lastKey != "" {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"token": &types.AttributeValueMemberS{Value: lastKey},
		}
	}
	return out
}

func TestRevokeAllForUser_FollowsAllPages(t *testing.T) {
	stub := &stubTokenAPI{pages: []*dynamodb.QueryOutput{
		tokenPage("t2", "t1", "t2"),
		tokenPage("", "t3"),
	}}
	repo := &RefreshTokenRepo{client: stub, tableName: "refresh_tokens"}

	require.NoError(t, repo.RevokeAllForUser(context.Background(), "u1"))

	// Tokens past the first page must not escape the cascade.
	assert.Equal(t, []string{"t1", "t2", "t3"}, stub.revoked)

	require.Len(t, stub.queries, 2)
	assert.Nil(t, stub.queries[0].ExclusiveStartKey)
	require.NotNil(t, stub.queries[1].ExclusiveStartKey)
}

func TestRevokeAllForUser_NoTokens_NoError(t *testing.T) {
	stub := &stubTokenAPI{}
	repo := &RefreshTokenRepo{client: stub, tableName: "refresh_tokens"}

	require.NoError(t, repo.RevokeAllForUser(context.Background(), "u1"))
	assert.Empty(t, stub.revoked)
}

type failingRevokeAPI struct {
	stubTokenAPI
	failOn string
}

func (f *failingRevokeAPI) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if params.Key["token"].(*types.AttributeValueMemberS).Value == f.failOn {
		return nil, errors.New("throttled")
	}
	return f.stubTokenAPI.UpdateItem(ctx, params, optFns...)
}

func TestRevokeAllForUser_PartialFailure_StillRevokesRestAndErrors(t *testing.T) {
	stub := &failingRevokeAPI{failOn: "t2"}
	stub.pages = []*dynamodb.QueryOutput{tokenPage("", "t1", "t2", "t3")}
	repo := &RefreshTokenRepo{client: stub, tableName: "refresh_tokens"}

	err := repo.RevokeAllForUser(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, []string{"t1", "t3"}, stub.revoked)
}
