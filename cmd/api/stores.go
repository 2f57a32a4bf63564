package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nft-voting-api/internal/config"
	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/infrastructure/dynamo"
	"github.com/nft-voting-api/internal/infrastructure/memory"
	redisstore "github.com/nft-voting-api/internal/infrastructure/redis"
	"github.com/nft-voting-api/internal/infrastructure/sqlstore"
	"github.com/redis/go-redis/v9"
)

// stores bundles the selected persistence backends.
type stores struct {
	users   domain.UserRepository
	votes   domain.VoteRepository
	codes   domain.CodeStore
	closers []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("close store", "err", err)
		}
	}
}

// openStores builds the user/vote stores from DATA_STORE and the code store
// from CODE_STORE. Clients shared by both are opened once.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}
	var (
		ddb *dynamodb.Client
		rdb *redis.Client
	)
	dynamoClient := func() (*dynamodb.Client, error) {
		if ddb != nil {
			return ddb, nil
		}
		c, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dynamo.Bootstrap(ctx, c, cfg.DynamoTables)
		ddb = c
		return ddb, nil
	}

	switch cfg.DataStore {
	case "memory", "":
		s.users = memory.NewUserRepo()
		s.votes = memory.NewVoteRepo()
	case "dynamo":
		c, err := dynamoClient()
		if err != nil {
			return nil, err
		}
		s.users = dynamo.NewUserRepo(c, cfg.DynamoTables.Users)
		s.votes = dynamo.NewVoteRepo(c, cfg.DynamoTables.Votes)
	case "sqlite":
		db, err := sqlstore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { return sqlstore.Close(db) })
		s.users = sqlstore.NewUserRepo(db)
		s.votes = sqlstore.NewVoteRepo(db)
	case "redis":
		c, err := redisstore.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rdb = c
		s.closers = append(s.closers, rdb.Close)
		s.users = redisstore.NewUserRepo(rdb)
		s.votes = redisstore.NewVoteRepo(rdb)
	default:
		return nil, fmt.Errorf("unknown DATA_STORE %q", cfg.DataStore)
	}

	switch cfg.CodeStore {
	case "memory", "":
		s.codes = memory.NewCodeStore(cfg.CodeTTL)
	case "redis":
		if rdb == nil {
			c, err := redisstore.NewClient(ctx, cfg)
			if err != nil {
				s.Close()
				return nil, err
			}
			rdb = c
			s.closers = append(s.closers, rdb.Close)
		}
		s.codes = redisstore.NewCodeStore(rdb, cfg.CodeTTL)
	case "dynamo":
		c, err := dynamoClient()
		if err != nil {
			s.Close()
			return nil, err
		}
		s.codes = dynamo.NewCodeStore(c, cfg.DynamoTables.Codes, cfg.CodeTTL)
	default:
		s.Close()
		return nil, fmt.Errorf("unknown CODE_STORE %q", cfg.CodeStore)
	}

	slog.Info("stores ready", "data_store", cfg.DataStore, "code_store", cfg.CodeStore)
	return s, nil
}
