package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocabflow_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vocabflow_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 审批引擎指标
var (
	// WorkflowSubmissions 提交进入流水线的内容总数
	WorkflowSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocabflow_workflow_submissions_total",
			Help: "提交进入审批流水线的内容总数",
		},
		[]string{"content_type"},
	)

	// ApprovalDecisions 审批裁决总数
	ApprovalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocabflow_approval_decisions_total",
			Help: "审批裁决总数",
		},
		[]string{"action", "result"},
	)

	// PendingReviews 最近一次队列查询的待审数量
	PendingReviews = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vocabflow_pending_reviews",
			Help: "待审核实例数量",
		},
	)
)

// 通知指标
var (
	// NotificationsCreated 写入的通知总数
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocabflow_notifications_created_total",
			Help: "写入的工作流通知总数",
		},
		[]string{"category"},
	)

	// NotificationsDelivered 渠道投递结果总数
	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocabflow_notifications_delivered_total",
			Help: "通知渠道投递结果总数",
		},
		[]string{"channel", "status"},
	)

	// WebSocketConnections WebSocket 在线连接数
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vocabflow_ws_connections",
			Help: "WebSocket 在线连接数",
		},
	)
)

// 数据库指标
var (
	// DBConnections 数据库连接数
	DBConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vocabflow_db_connections",
			Help: "数据库连接数",
		},
		[]string{"state"}, // state: open, in_use, idle
	)
)

// 系统指标
var (
	// BuildInfo 构建信息
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vocabflow_build_info",
			Help: "构建信息",
		},
		[]string{"version", "go_version", "commit"},
	)
)

// RecordBuildInfo 记录构建信息
func RecordBuildInfo(version, goVersion, commit string) {
	BuildInfo.WithLabelValues(version, goVersion, commit).Set(1)
}
