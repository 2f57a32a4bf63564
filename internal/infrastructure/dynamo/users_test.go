package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nft-voting-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_GetByWallet_QueriesIndex(t *testing.T) {
	item, err := attributevalue.MarshalMap(&domain.User{UserID: "u1", WalletAddress: "addr1w", AuthMethod: domain.AuthMethodWallet})
	require.NoError(t, err)

	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.IndexName) == "wallet_address-index" &&
			in.ExpressionAttributeNames["#a"] == "wallet_address"
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	u, err := NewUserRepo(api, "users").GetByWallet(context.Background(), "addr1w")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, domain.AuthMethodWallet, u.AuthMethod)
}

func TestUserRepo_GetByEmail_NotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	_, err := NewUserRepo(api, "users").GetByEmail(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_Create_OmitsEmptyIdentifiers(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		_, hasEmail := in.Item["email"]
		_, hasWallet := in.Item["wallet_address"]
		return !hasEmail && hasWallet
	})).Return(&dynamodb.PutItemOutput{}, nil)

	err := NewUserRepo(api, "users").Create(context.Background(), &domain.User{UserID: "u1", WalletAddress: "addr1w"})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestUserRepo_Update_MissingUser(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return aws.ToString(in.ConditionExpression) == "attribute_exists(#pk)"
	})).Return(nil, &types.ConditionalCheckFailedException{})

	err := NewUserRepo(api, "users").Update(context.Background(), &domain.User{UserID: "u1", Role: domain.RoleAdmin, UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
