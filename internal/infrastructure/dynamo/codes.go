package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/pkg/otp"
)

// CodeStore keeps login codes in a table keyed by email with TTL on
// expires_at. DynamoDB TTL deletion is lazy, so expiry is also checked in
// the delete condition.
type CodeStore struct {
	client    API
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

func NewCodeStore(client API, tableName string, ttl time.Duration) *CodeStore {
	return &CodeStore{client: client, tableName: tableName, ttl: ttl, now: time.Now}
}

func (s *CodeStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := otp.New()
	if err != nil {
		return "", err
	}
	v := domain.NewVerificationCode(strings.ToLower(email), code, s.now().Add(s.ttl))
	item, err := attributevalue.MarshalMap(&v)
	if err != nil {
		return "", fmt.Errorf("marshal code: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

// Verify deletes the item only if the code matches and has not expired. On a
// failed condition an expired item is evicted while a mismatched one is kept.
// Expiry is compared in milliseconds; the seconds TTL only drives cleanup.
func (s *CodeStore) Verify(ctx context.Context, email, candidate string) (bool, error) {
	key := strKey(fieldEmail, strings.ToLower(email))
	now := &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().UnixMilli(), 10)}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 key,
		ConditionExpression: aws.String("#c = :c AND #e > :now"),
		ExpressionAttributeNames: map[string]string{
			"#c": fieldCode,
			"#e": fieldExpiresAtMs,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":   &types.AttributeValueMemberS{Value: candidate},
			":now": now,
		},
	})
	if err == nil {
		return true, nil
	}
	if !isConditionFailed(err) {
		return false, fmt.Errorf("consume code: %w", err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       key,
		ConditionExpression:       aws.String("#e <= :now"),
		ExpressionAttributeNames:  map[string]string{"#e": fieldExpiresAtMs},
		ExpressionAttributeValues: map[string]types.AttributeValue{":now": now},
	})
	if err != nil && !isConditionFailed(err) {
		return false, fmt.Errorf("evict expired code: %w", err)
	}
	return false, nil
}
