package workflow

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"backend/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	statsCacheKey = "workflow:statistics"
	statsCacheTTL = 30 * time.Second
)

// Stats 统计聚合器：实例进度与全局统计
type Stats struct {
	db     *gorm.DB
	cache  redis.UniversalClient
	logger *zap.Logger
}

// NewStats 创建统计聚合器。cache 可为 nil，此时每次实时计算。
func NewStats(db *gorm.DB, cache redis.UniversalClient) *Stats {
	return &Stats{
		db:     db,
		cache:  cache,
		logger: logger.Get(),
	}
}

// ComputeProgress 由实例计算进度。百分比为完成步骤数对总步骤数
// 四舍五入取整；无步骤时为 0。存在进行中步骤时给出剩余时间估算：
// 以实例的预计完成时间与当前时刻之差为准（下限 0），实例未带
// 预计完成时间时退化为按模板预估时长累计。
func ComputeProgress(instance *WorkflowInstance, def *Definition) *Progress {
	progress := &Progress{}
	var inProgress *StepRecord
	for i := range instance.StepHistory {
		rec := &instance.StepHistory[i]
		switch rec.Status {
		case StepCompleted:
			progress.CompletedSteps++
		case StepInProgress:
			inProgress = rec
		}
	}
	progress.TotalSteps = len(instance.StepHistory)

	if progress.TotalSteps > 0 {
		progress.ProgressPercentage = int(math.Round(
			float64(progress.CompletedSteps) / float64(progress.TotalSteps) * 100))
	}

	if inProgress != nil {
		if instance.EstimatedCompletionAt != nil {
			remaining := time.Until(*instance.EstimatedCompletionAt)
			if remaining < 0 {
				remaining = 0
			}
			seconds := int64(remaining.Seconds())
			progress.EstimatedSecondsRemaining = &seconds
		} else if def != nil {
			if remaining := remainingEstimate(inProgress, def); remaining > 0 {
				seconds := int64(remaining.Seconds())
				progress.EstimatedSecondsRemaining = &seconds
			}
		}
	}
	return progress
}

// remainingEstimate 当前步骤剩余预估加上后续模板步骤的预估之和
func remainingEstimate(current *StepRecord, def *Definition) time.Duration {
	var total time.Duration
	if current.Escalation {
		total += def.Escalation.EstimatedDuration
	} else if tpl := def.StepAt(current.TemplateIndex); tpl != nil {
		total += tpl.EstimatedDuration
	}
	for i := current.TemplateIndex + 1; i < len(def.Steps); i++ {
		total += def.Steps[i].EstimatedDuration
	}
	elapsed := time.Since(current.StartedAt)
	if elapsed >= total {
		return 0
	}
	return total - elapsed
}

// GetInstanceProgress 查询实例进度
func (s *Stats) GetInstanceProgress(ctx context.Context, manager *Manager, registry *Registry, instanceID string) (*Progress, error) {
	instance, err := manager.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	def, err := registry.Get(instance.ContentType)
	if err != nil {
		def = nil
	}
	return ComputeProgress(instance, def), nil
}

// GetStatistics 全局统计：总数、按状态分布、按内容类型分布。
// 结果在 redis 缓存约 30 秒，缓存失败退化为实时计算。
func (s *Stats) GetStatistics(ctx context.Context) (*Statistics, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var cached Statistics
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	stats := &Statistics{
		ByStatus:      make(map[WorkflowStatus]int64),
		ByContentType: make(map[ContentType]int64),
		GeneratedAt:   time.Now(),
	}

	if err := s.db.WithContext(ctx).Model(&WorkflowInstance{}).Count(&stats.Total).Error; err != nil {
		return nil, StorageError(err)
	}

	type statusRow struct {
		CurrentStatus WorkflowStatus
		Count         int64
	}
	var statusRows []statusRow
	if err := s.db.WithContext(ctx).Model(&WorkflowInstance{}).
		Select("current_status, COUNT(*) as count").
		Group("current_status").
		Scan(&statusRows).Error; err != nil {
		return nil, StorageError(err)
	}
	for _, row := range statusRows {
		stats.ByStatus[row.CurrentStatus] = row.Count
	}

	type typeRow struct {
		ContentType ContentType
		Count       int64
	}
	var typeRows []typeRow
	if err := s.db.WithContext(ctx).Model(&WorkflowInstance{}).
		Select("content_type, COUNT(*) as count").
		Group("content_type").
		Scan(&typeRows).Error; err != nil {
		return nil, StorageError(err)
	}
	for _, row := range typeRows {
		stats.ByContentType[row.ContentType] = row.Count
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, raw, statsCacheTTL).Err(); err != nil {
				s.logger.Warn("统计缓存写入失败", zap.Error(err))
			}
		}
	}
	return stats, nil
}
