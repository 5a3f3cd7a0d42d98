package model

// Form payloads submitted by the ERP web client. Struct tags hold the only
// client-side checks the BFF performs; everything else is the backend's call.

// ShortageReportForm reports a material shortage.
type ShortageReportForm struct {
	ProjectID   int64   `json:"project_id"   validate:"required,gt=0"`
	MaterialID  int64   `json:"material_id"  validate:"required,gt=0"`
	RequiredQty float64 `json:"required_qty" validate:"gt=0"`
	ShortageQty float64 `json:"shortage_qty" validate:"gt=0,ltefield=RequiredQty"`
	UrgentLevel string  `json:"urgent_level" validate:"required,oneof=LOW NORMAL HIGH URGENT"`
	Remark      string  `json:"remark,omitempty" validate:"max=500"`
}

// ReceiveArrivalForm confirms receipt of an arrival. ExpectedQty echoes the
// row the user acted on; when set, ReceivedQty may not exceed it.
type ReceiveArrivalForm struct {
	ReceivedQty float64 `json:"received_qty"           validate:"gt=0"`
	ExpectedQty float64 `json:"expected_qty,omitempty" validate:"gte=0"`
	Remark      string  `json:"remark,omitempty"       validate:"max=500"`
}

// SubstitutionForm creates a material substitution request.
type SubstitutionForm struct {
	ProjectID            int64   `json:"project_id"             validate:"required,gt=0"`
	OriginalMaterialID   int64   `json:"original_material_id"   validate:"required,gt=0"`
	SubstituteMaterialID int64   `json:"substitute_material_id" validate:"required,gt=0,nefield=OriginalMaterialID"`
	OriginalQty          float64 `json:"original_qty"           validate:"gt=0"`
	SubstituteQty        float64 `json:"substitute_qty"         validate:"gt=0"`
	Reason               string  `json:"substitution_reason"    validate:"notblank,max=500"`
}

// ApprovalForm carries the optional comment of an approve action.
type ApprovalForm struct {
	Comment string `json:"approval_note,omitempty" validate:"max=500"`
}

// RejectForm carries the mandatory reason of a reject action.
type RejectForm struct {
	Reason string `json:"reject_reason" validate:"notblank,max=500"`
}

// FollowUpForm records a follow-up on a customer or an overdue arrival.
type FollowUpForm struct {
	FollowUpType string `json:"follow_up_type"        validate:"required,oneof=CALL VISIT EMAIL MEETING OTHER"`
	Content      string `json:"content"               validate:"notblank,max=2000"`
	NextAction   string `json:"next_action,omitempty" validate:"max=500"`
}

// ApplyTemplateForm applies a presale template to an opportunity.
type ApplyTemplateForm struct {
	OpportunityID int64 `json:"opportunity_id,omitempty" validate:"gte=0"`
}

// RateTemplateForm rates a presale template.
type RateTemplateForm struct {
	Rating  int    `json:"rating"            validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty" validate:"max=500"`
}

// AdvanceStageForm moves a project stage forward.
type AdvanceStageForm struct {
	Comment string `json:"comment,omitempty" validate:"max=500"`
}
