package model

import "github.com/shopspring/decimal"

// Arrival statuses.
const (
	ArrivalPending   = "PENDING"
	ArrivalInTransit = "IN_TRANSIT"
	ArrivalDelayed   = "DELAYED"
	ArrivalReceived  = "RECEIVED"
	ArrivalCancelled = "CANCELLED"
)

// Substitution statuses.
const (
	SubstitutionDraft       = "DRAFT"
	SubstitutionTechPending = "TECH_PENDING"
	SubstitutionProdPending = "PROD_PENDING"
	SubstitutionApproved    = "APPROVED"
	SubstitutionRejected    = "REJECTED"
	SubstitutionExecuted    = "EXECUTED"
)

// Project statuses that count toward an engineer's workload.
const (
	ProjectActive  = "ACTIVE"
	ProjectDelayed = "DELAYED"
)

// Arrival is an expected material delivery tracked by the shortage module.
type Arrival struct {
	ID               int64   `json:"id"`
	ArrivalNo        string  `json:"arrival_no"`
	MaterialCode     string  `json:"material_code"`
	MaterialName     string  `json:"material_name"`
	SupplierName     string  `json:"supplier_name"`
	ProjectName      string  `json:"project_name,omitempty"`
	ExpectedQty      float64 `json:"expected_qty"`
	ReceivedQty      float64 `json:"received_qty"`
	ExpectedDate     string  `json:"expected_date"`
	ActualDate       string  `json:"actual_date,omitempty"`
	DelayDays        int     `json:"delay_days"`
	Status           string  `json:"status"`
	PurchaseOrderNo  string  `json:"purchase_order_no,omitempty"`
	ShortageReportID int64   `json:"shortage_report_id,omitempty"`
}

// Substitution is a material substitution request.
type Substitution struct {
	ID                 int64   `json:"id"`
	SubstitutionNo     string  `json:"substitution_no"`
	ProjectName        string  `json:"project_name"`
	OriginalMaterial   string  `json:"original_material_name"`
	SubstituteMaterial string  `json:"substitute_material_name"`
	OriginalQty        float64 `json:"original_qty"`
	SubstituteQty      float64 `json:"substitute_qty"`
	Reason             string  `json:"substitution_reason"`
	Status             string  `json:"status"`
	TechApprover       string  `json:"tech_approver_name,omitempty"`
	ProdApprover       string  `json:"prod_approver_name,omitempty"`
	CreatedAt          string  `json:"created_at"`
}

// ShortageReport is a reported material shortage.
type ShortageReport struct {
	ID          int64   `json:"id"`
	ReportNo    string  `json:"report_no"`
	ProjectID   int64   `json:"project_id"`
	MaterialID  int64   `json:"material_id"`
	RequiredQty float64 `json:"required_qty"`
	ShortageQty float64 `json:"shortage_qty"`
	UrgentLevel string  `json:"urgent_level"`
	Status      string  `json:"status"`
	ReportedAt  string  `json:"reported_at"`
}

// PurchaseOrder is a purchase order as shown in procurement lists.
type PurchaseOrder struct {
	ID           int64           `json:"id"`
	OrderNo      string          `json:"order_no"`
	SupplierName string          `json:"supplier_name"`
	ProjectName  string          `json:"project_name,omitempty"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	OrderDate    string          `json:"order_date"`
	RequiredDate string          `json:"required_date,omitempty"`
	Status       string          `json:"status"`
	ItemCount    int             `json:"item_count"`
}

// CostBudget is one budget line of a project's cost summary.
type CostBudget struct {
	Category     string          `json:"category"`
	BudgetAmount decimal.Decimal `json:"budget_amount"`
	UsedAmount   decimal.Decimal `json:"used_amount"`
}

// Customer is the header record of the customer 360 view.
type Customer struct {
	ID           int64  `json:"id"`
	CustomerCode string `json:"customer_code"`
	CustomerName string `json:"customer_name"`
	Industry     string `json:"industry,omitempty"`
	ContactName  string `json:"contact_person,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	Level        string `json:"customer_level,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// CustomerProject is a project delivered for a customer.
type CustomerProject struct {
	ID             int64           `json:"id"`
	ProjectCode    string          `json:"project_code"`
	ProjectName    string          `json:"project_name"`
	Status         string          `json:"status"`
	ContractAmount decimal.Decimal `json:"contract_amount"`
	StartDate      string          `json:"start_date,omitempty"`
	CreatedAt      string          `json:"created_at,omitempty"`
}

// FollowUp is a sales follow-up record.
type FollowUp struct {
	ID           int64  `json:"id"`
	FollowUpType string `json:"follow_up_type"`
	Content      string `json:"content"`
	NextAction   string `json:"next_action,omitempty"`
	CreatedBy    string `json:"created_by_name,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// SatisfactionSurvey is one customer satisfaction survey result.
type SatisfactionSurvey struct {
	ID           int64   `json:"id"`
	SurveyNo     string  `json:"survey_no"`
	OverallScore float64 `json:"overall_score"`
	Feedback     string  `json:"feedback,omitempty"`
	SurveyDate   string  `json:"survey_date"`
}

// SchedulerJobMetric holds the run counters of one scheduled job.
type SchedulerJobMetric struct {
	JobID          string  `json:"job_id"`
	JobName        string  `json:"job_name,omitempty"`
	SuccessCount   int     `json:"success_count"`
	FailureCount   int     `json:"failure_count"`
	LastRunAt      string  `json:"last_run_at,omitempty"`
	LastStatus     string  `json:"last_status,omitempty"`
	AvgDurationMs  float64 `json:"avg_duration_ms,omitempty"`
	LastDurationMs float64 `json:"last_duration_ms,omitempty"`
}

// SchedulerJob is a registered scheduled job.
type SchedulerJob struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Trigger     string `json:"trigger"`
	NextRunTime string `json:"next_run_time,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// EngineerMember is an engineer with their assigned projects.
type EngineerMember struct {
	UserID           int64             `json:"user_id"`
	Name             string            `json:"name"`
	Department       string            `json:"department,omitempty"`
	Role             string            `json:"role,omitempty"`
	AssignedProjects []AssignedProject `json:"assigned_projects"`
}

// AssignedProject is a project assignment of an engineer.
type AssignedProject struct {
	ProjectID   int64  `json:"project_id"`
	ProjectName string `json:"project_name"`
	Status      string `json:"status"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// WorkloadConflict is a scheduling conflict detected by the backend.
type WorkloadConflict struct {
	ID           int64   `json:"id"`
	UserID       int64   `json:"user_id"`
	EngineerName string  `json:"engineer_name"`
	ConflictType string  `json:"conflict_type"`
	WarningLevel string  `json:"warning_level"`
	Description  string  `json:"description"`
	ProjectIDs   []int64 `json:"project_ids,omitempty"`
	DetectedAt   string  `json:"detected_at,omitempty"`
}

// ProjectStage is one stage of a project's delivery pipeline.
type ProjectStage struct {
	StageCode  string  `json:"stage_code"`
	StageName  string  `json:"stage_name"`
	Sequence   int     `json:"sequence"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	PlannedEnd string  `json:"planned_end_date,omitempty"`
	ActualEnd  string  `json:"actual_end_date,omitempty"`
	Owner      string  `json:"owner_name,omitempty"`
	IsDelayed  bool    `json:"is_delayed"`
}

// StageView is the stage pipeline of one project.
type StageView struct {
	ProjectID    int64          `json:"project_id"`
	ProjectCode  string         `json:"project_code"`
	ProjectName  string         `json:"project_name"`
	CurrentStage string         `json:"current_stage"`
	Stages       []ProjectStage `json:"stages"`
}

// PresaleTemplate is a reusable presale solution template.
type PresaleTemplate struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Industry    string  `json:"industry,omitempty"`
	Status      string  `json:"status"`
	ApplyCount  int     `json:"apply_count"`
	RatingCount int     `json:"rating_count"`
	AvgRating   float64 `json:"avg_rating"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

// CostSummary is the budget overview of one project.
type CostSummary struct {
	ProjectID   int64        `json:"project_id"`
	ProjectCode string       `json:"project_code,omitempty"`
	ProjectName string       `json:"project_name"`
	Budgets     []CostBudget `json:"budgets"`
}

// CostItem is one booked cost of a project.
type CostItem struct {
	ID          int64           `json:"id"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  string          `json:"occurred_at"`
	SourceNo    string          `json:"source_no,omitempty"`
}
