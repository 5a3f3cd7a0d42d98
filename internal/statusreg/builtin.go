package statusreg

import "github.com/fulingwei1/non-standard-automation-pms-sub014/model"

// Status domains shared by the page assemblers.
const (
	DomainArrival       = "arrival"
	DomainSubstitution  = "substitution"
	DomainPurchaseOrder = "purchase_order"
	DomainProject       = "project"
	DomainStage         = "stage"
	DomainWorkload      = "workload"
	DomainWarningLevel  = "warning_level"
	DomainSchedulerJob  = "scheduler_job"
	DomainTemplate      = "template"
	DomainFollowUp      = "follow_up"
	DomainUsageLevel    = "usage_level"
)

// GlobalDefault is used for domains the registry does not know.
var GlobalDefault = model.StatusConfig{Color: "gray", Icon: "help-circle"}

func sc(label, color, icon string, actions ...string) model.StatusConfig {
	return model.StatusConfig{Label: label, Color: color, Icon: icon, Actions: actions}
}

// Builtin returns the compiled-in status domains. YAML files loaded at
// startup are merged over these.
func Builtin() []model.StatusDomainDefinition {
	return []model.StatusDomainDefinition{
		{
			Domain:  DomainArrival,
			Default: sc("", "gray", "package"),
			Statuses: map[string]model.StatusConfig{
				model.ArrivalPending:   sc("待到货", "blue", "clock", "receive", "follow_up"),
				model.ArrivalInTransit: sc("运输中", "cyan", "truck", "receive", "follow_up"),
				model.ArrivalDelayed:   sc("已延期", "red", "alert-triangle", "receive", "follow_up"),
				model.ArrivalReceived:  sc("已收货", "green", "check-circle"),
				model.ArrivalCancelled: sc("已取消", "gray", "x-circle"),
			},
		},
		{
			Domain:  DomainSubstitution,
			Default: sc("", "gray", "repeat"),
			Statuses: map[string]model.StatusConfig{
				model.SubstitutionDraft:       sc("草稿", "gray", "edit"),
				model.SubstitutionTechPending: sc("待技术审批", "amber", "clock", "tech_approve", "reject"),
				model.SubstitutionProdPending: sc("待生产审批", "orange", "clock", "prod_approve", "reject"),
				model.SubstitutionApproved:    sc("已批准", "blue", "check", "execute"),
				model.SubstitutionRejected:    sc("已驳回", "red", "x-circle"),
				model.SubstitutionExecuted:    sc("已执行", "green", "check-circle"),
			},
		},
		{
			Domain:  DomainPurchaseOrder,
			Default: sc("", "gray", "file-text"),
			Statuses: map[string]model.StatusConfig{
				"DRAFT":            sc("草稿", "gray", "edit", "submit"),
				"PENDING_APPROVAL": sc("待审批", "amber", "clock", "approve"),
				"APPROVED":         sc("已审批", "blue", "check"),
				"ORDERED":          sc("已下单", "indigo", "send"),
				"PARTIAL_RECEIVED": sc("部分到货", "cyan", "package"),
				"RECEIVED":         sc("已到货", "green", "check-circle"),
				"CANCELLED":        sc("已取消", "gray", "x-circle"),
			},
		},
		{
			Domain:  DomainProject,
			Default: sc("", "gray", "folder"),
			Statuses: map[string]model.StatusConfig{
				"PLANNING":           sc("规划中", "gray", "compass"),
				model.ProjectActive:  sc("进行中", "blue", "play-circle"),
				model.ProjectDelayed: sc("已延期", "red", "alert-triangle"),
				"PAUSED":             sc("已暂停", "amber", "pause-circle"),
				"COMPLETED":          sc("已完成", "green", "check-circle"),
			},
		},
		{
			Domain:  DomainStage,
			Default: sc("", "gray", "circle"),
			Statuses: map[string]model.StatusConfig{
				"NOT_STARTED": sc("未开始", "gray", "circle"),
				"IN_PROGRESS": sc("进行中", "blue", "loader", "advance"),
				"DELAYED":     sc("已延期", "red", "alert-triangle", "advance"),
				"BLOCKED":     sc("受阻", "orange", "slash"),
				"COMPLETED":   sc("已完成", "green", "check-circle"),
			},
		},
		{
			Domain:  DomainWorkload,
			Default: sc("", "gray", "activity"),
			Statuses: map[string]model.StatusConfig{
				"LOW":        sc("空闲", "green", "battery"),
				"NORMAL":     sc("正常", "blue", "battery-medium"),
				"HIGH":       sc("繁忙", "amber", "battery-full"),
				"OVERLOADED": sc("超负荷", "red", "alert-octagon"),
			},
		},
		{
			Domain:  DomainWarningLevel,
			Default: sc("", "gray", "info"),
			Statuses: map[string]model.StatusConfig{
				"INFO":     sc("提示", "blue", "info"),
				"NORMAL":   sc("正常", "green", "check"),
				"WARNING":  sc("警告", "amber", "alert-triangle"),
				"CRITICAL": sc("严重", "red", "alert-octagon"),
			},
		},
		{
			Domain:  DomainSchedulerJob,
			Default: sc("", "gray", "clock", "trigger"),
			Statuses: map[string]model.StatusConfig{
				"SUCCESS": sc("成功", "green", "check-circle", "trigger"),
				"FAILED":  sc("失败", "red", "x-circle", "trigger"),
				"RUNNING": sc("运行中", "blue", "loader"),
				"PAUSED":  sc("已暂停", "gray", "pause-circle"),
			},
		},
		{
			Domain:  DomainTemplate,
			Default: sc("", "gray", "layout"),
			Statuses: map[string]model.StatusConfig{
				"DRAFT":    sc("草稿", "gray", "edit"),
				"ACTIVE":   sc("已发布", "green", "check-circle", "apply", "rate"),
				"ARCHIVED": sc("已归档", "gray", "archive"),
			},
		},
		{
			Domain:  DomainFollowUp,
			Default: sc("其他", "gray", "message-circle"),
			Statuses: map[string]model.StatusConfig{
				"CALL":    sc("电话", "blue", "phone"),
				"VISIT":   sc("拜访", "green", "map-pin"),
				"EMAIL":   sc("邮件", "cyan", "mail"),
				"MEETING": sc("会议", "purple", "users"),
			},
		},
		{
			Domain:  DomainUsageLevel,
			Default: sc("", "gray", "pie-chart"),
			Statuses: map[string]model.StatusConfig{
				"normal":  sc("正常", "green", "check"),
				"warning": sc("预警", "amber", "alert-triangle"),
				"over":    sc("超支", "red", "alert-octagon"),
			},
		},
	}
}
