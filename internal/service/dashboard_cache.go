package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// dashboardCache stores evaluator dashboards per teacher and indexes the keys
// by course so a grading change in one course drops every affected dashboard.
type dashboardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func newDashboardCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *dashboardCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &dashboardCache{client: client, ttl: ttl, logger: logger}
}

func dashboardKey(teacherID uint) string {
	return fmt.Sprintf("hub:evaluator:dashboard:teacher:%d", teacherID)
}

func dashboardCourseIndexKey(courseID uint) string {
	return fmt.Sprintf("hub:evaluator:dashboard:course:%d", courseID)
}

func (c *dashboardCache) get(ctx context.Context, teacherID uint, out interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}

	cached, err := c.client.Get(ctx, dashboardKey(teacherID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cached), out); err != nil {
		c.logger.Warn().Err(err).Msg("discarding undecodable dashboard cache entry")
		return false
	}
	return true
}

func (c *dashboardCache) set(ctx context.Context, teacherID uint, courseIDs []uint, value interface{}) {
	if c == nil || c.client == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}

	key := dashboardKey(teacherID)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, payload, c.ttl)
	for _, courseID := range courseIDs {
		index := dashboardCourseIndexKey(courseID)
		pipe.SAdd(ctx, index, key)
		pipe.Expire(ctx, index, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store dashboard cache")
	}
}

func (c *dashboardCache) invalidateCourse(ctx context.Context, courseID uint) {
	if c == nil || c.client == nil {
		return
	}

	index := dashboardCourseIndexKey(courseID)
	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil && err != redis.Nil {
		c.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to read dashboard cache index")
		return
	}

	keys = append(keys, index)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate dashboard cache")
	}
}
