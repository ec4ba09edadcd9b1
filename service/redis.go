package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/thoxey/AiClothes/config"
	"github.com/thoxey/AiClothes/model"
	"github.com/thoxey/AiClothes/utils"
	"go.uber.org/zap"
)

// ResultCache 分割结果缓存，未命中时返回 nil, nil
type ResultCache interface {
	GetSegmentResult(ctx context.Context, key string) (*model.SegmentResult, error)
	SetSegmentResult(ctx context.Context, key string, result *model.SegmentResult) error
}

type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetSegmentResult 从缓存获取分割结果
func (s *RedisService) GetSegmentResult(ctx context.Context, key string) (*model.SegmentResult, error) {
	data, err := s.client.Get(ctx, "segment:"+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // 缓存未命中
		}
		return nil, err
	}

	var result model.SegmentResult
	if err := json.Unmarshal(data, &result); err != nil {
		utils.Logger.Error("failed to unmarshal segment result",
			zap.String("key", key), zap.Error(err))
		return nil, err
	}

	return &result, nil
}

// SetSegmentResult 设置分割结果到缓存
func (s *RedisService) SetSegmentResult(ctx context.Context, key string, result *model.SegmentResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, "segment:"+key, data, s.ttl).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// NopCache 禁用缓存时使用
type NopCache struct{}

func (NopCache) GetSegmentResult(context.Context, string) (*model.SegmentResult, error) {
	return nil, nil
}

func (NopCache) SetSegmentResult(context.Context, string, *model.SegmentResult) error {
	return nil
}
