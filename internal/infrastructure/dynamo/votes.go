package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nft-voting-api/internal/domain"
)

// VoteRepo stores votes keyed by user_id.
type VoteRepo struct {
	client    API
	tableName string
}

func NewVoteRepo(client API, tableName string) *VoteRepo {
	return &VoteRepo{client: client, tableName: tableName}
}

func (r *VoteRepo) PutIfAbsent(ctx context.Context, v *domain.Vote) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal vote: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldUserID},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("user %s: %w", v.UserID, domain.ErrDuplicateVote)
	}
	return err
}

func (r *VoteRepo) GetByUser(ctx context.Context, userID string) (*domain.Vote, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("vote for %s: %w", userID, domain.ErrNotFound)
	}
	var v domain.Vote
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VoteRepo) HasVoted(ctx context.Context, userID string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldUserID, userID),
		ProjectionExpression:     aws.String("#pk"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldUserID},
		ConsistentRead:           aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}

// CountByOption scans the option_id attribute of every vote.
func (r *VoteRepo) CountByOption(ctx context.Context) (map[string]int, error) {
	input := &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		ProjectionExpression:     aws.String("#o"),
		ExpressionAttributeNames: map[string]string{"#o": fieldOptionID},
	}
	counts := make(map[string]int)
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var rows []struct {
			OptionID string `dynamodbav:"option_id"`
		}
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &rows); err != nil {
			return nil, err
		}
		for _, row := range rows {
			counts[row.OptionID]++
		}
		if len(out.LastEvaluatedKey) == 0 {
			return counts, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (r *VoteRepo) Count(ctx context.Context) (int, error) {
	return scanCount(ctx, r.client, r.tableName)
}
