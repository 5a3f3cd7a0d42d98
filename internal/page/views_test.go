package page

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/display"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp/erptest"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/listview"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

func TestCustomer360_partialFailure(t *testing.T) {
	inv := erptest.New().
		Reply("getCustomer", jsonBody(t, `{"data":{"id":501,"customer_code":"C-0501","customer_name":"华东汽车"}}`)).
		Reply("listCustomerProjects", jsonBody(t, `[
			{"id":1,"project_code":"P-1","project_name":"焊装线","status":"ACTIVE","contract_amount":1000000,"start_date":"2021-03-01"},
			{"id":2,"project_code":"P-2","project_name":"涂装线","status":"COMPLETED","contract_amount":"250000.50","created_at":"2023-06-01T10:00:00"}
		]`)).
		Reply("listCustomerFollowUps", jsonBody(t, `{"items":[{"id":9,"follow_up_type":"VISIT","content":"现场拜访","created_at":"2026-09-30 14:00:00"}]}`)).
		Fail("listCustomerSurveys", model.NewBackendError(http.StatusInternalServerError, "满意度服务不可用"))

	v, err := newService(inv).Customer360(context.Background(), 501)
	require.NoError(t, err)

	require.NotNil(t, v.Customer)
	assert.Equal(t, "华东汽车", v.Customer.CustomerName)
	assert.Len(t, v.Projects, 2)
	assert.Equal(t, "拜访", v.FollowUps[0].Badge.Label)

	assert.Equal(t, resource.BranchOK, v.Branches[BranchProjects].Status)
	assert.Equal(t, resource.BranchError, v.Branches[BranchSurveys].Status)
	assert.Equal(t, "满意度服务不可用", v.Branches[BranchSurveys].Error)
	assert.NotNil(t, v.Surveys)
	assert.Empty(t, v.Surveys)

	assert.Equal(t, 5, v.Stats.CooperationYears)
	assert.Equal(t, 2, v.Stats.ProjectCount)
	assert.Equal(t, 1, v.Stats.ActiveProjects)
	assert.Equal(t, "1250000.50", v.Stats.TotalContractAmount)
	assert.Equal(t, "¥125.0万", v.Stats.TotalContractText)
	assert.Zero(t, v.Stats.AverageSatisfaction)
}

func TestCustomer360_unauthorizedBranchFailsRequest(t *testing.T) {
	inv := erptest.New().Fail("getCustomer", model.NewUnauthorizedError("expired"))
	_, err := newService(inv).Customer360(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ErrUnauthorized))
}

func TestCreateCustomerFollowUp(t *testing.T) {
	inv := erptest.New()
	svc := newService(inv)

	out, err := svc.CreateCustomerFollowUp(context.Background(), 501, resource.Request[model.FollowUpForm]{
		Payload: model.FollowUpForm{FollowUpType: "CALL", Content: "  确认验收时间  "},
	})
	require.NoError(t, err)
	assert.False(t, out.DialogOpen)
	assert.IsType(t, Customer360{}, out.Data)

	call, ok := inv.Last("createCustomerFollowUp")
	require.True(t, ok)
	assert.Equal(t, "确认验收时间", call.Input.Body.(model.FollowUpForm).Content)
	assert.Equal(t, 1, inv.Count("getCustomer"))
}

func TestWorkloadBoard(t *testing.T) {
	inv := erptest.New().
		Reply("listEngineerWorkload", jsonBody(t, `[
			{"user_id":1,"name":"张伟","assigned_projects":[
				{"project_id":1,"status":"ACTIVE"},{"project_id":2,"status":"ACTIVE"},{"project_id":3,"status":"ACTIVE"},
				{"project_id":4,"status":"DELAYED"},{"project_id":5,"status":"COMPLETED"}]},
			{"user_id":2,"name":"李娜","assigned_projects":[{"project_id":6,"status":"ACTIVE"}]},
			{"user_id":3,"name":"王强"}
		]`)).
		Reply("listWorkloadConflicts", jsonBody(t, `[{"id":1,"user_id":1,"engineer_name":"张伟","conflict_type":"OVERLAP","warning_level":"WARNING","description":"两个项目调试期重叠"}]`))

	b, err := newService(inv).WorkloadBoard(context.Background(), listview.Query{SortKey: "workload", Desc: true})
	require.NoError(t, err)
	require.Len(t, b.Engineers.Items, 3)

	top := b.Engineers.Items[0]
	assert.Equal(t, "张伟", top.Name)
	assert.Equal(t, 80, top.Workload)
	assert.Equal(t, display.WorkloadOverloaded, top.Bucket)
	assert.Equal(t, "超负荷", top.Badge.Label)
	assert.Equal(t, 1, top.Conflicts)

	idle := b.Engineers.Items[2]
	assert.Zero(t, idle.Workload)
	assert.NotNil(t, idle.AssignedProjects)

	assert.Equal(t, map[string]int{display.WorkloadOverloaded: 1, display.WorkloadLow: 2}, b.Buckets)
	require.Len(t, b.Conflicts, 1)
	assert.Equal(t, "警告", b.Conflicts[0].Badge.Label)
}

func TestWorkloadBoard_conflictFailureIsShownBesideEngineers(t *testing.T) {
	inv := erptest.New().
		Reply("listEngineerWorkload", jsonBody(t, `[{"user_id":1,"name":"张伟"}]`)).
		Fail("listWorkloadConflicts", model.NewBackendTimeoutError())
	b, err := newService(inv).WorkloadBoard(context.Background(), listview.Query{})
	require.NoError(t, err)
	assert.Len(t, b.Engineers.Items, 1)
	assert.NotEmpty(t, b.ConflictsError)
	assert.Empty(t, b.Conflicts)
}

func TestSchedulerDashboard_aggregates(t *testing.T) {
	inv := erptest.New().
		Reply("listSchedulerJobMetrics", jsonBody(t, `{"data":[
			{"job_id":"sync_bom","success_count":10,"failure_count":0,"last_status":"SUCCESS"},
			{"job_id":"calc_shortage","success_count":8,"failure_count":2,"last_status":"FAILED","last_run_at":"2026-10-18T02:00:00"}
		]}`)).
		Reply("listSchedulerJobs", jsonBody(t, `[{"id":"sync_bom","name":"BOM 同步","trigger":"cron[0 2 * * *]","enabled":true}]`))

	d, err := newService(inv).SchedulerDashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, display.SchedulerStats{Total: 2, TotalSuccess: 18, TotalFailure: 2, SuccessRate: 90.0}, d.Stats)
	assert.Equal(t, "90.0%", d.SuccessRateText)
	require.Len(t, d.Heat, 2)
	assert.Equal(t, "calc_shortage", d.Heat[0].JobID)
	assert.Equal(t, display.HeatWarning, d.Heat[0].Level)
	assert.Equal(t, "20.0%", d.Heat[0].RateText)
	assert.Equal(t, "失败", d.Metrics[1].Badge.Label)
	assert.Equal(t, "2026-10-18 02:00", d.Metrics[1].LastRunText)
	assert.Len(t, d.Jobs, 1)
}

func TestTriggerJob(t *testing.T) {
	inv := erptest.New()
	out, err := newService(inv).TriggerJob(context.Background(), "sync_bom", resource.Request[struct{}]{})
	require.NoError(t, err)
	assert.False(t, out.DialogOpen)
	call, _ := inv.Last("triggerSchedulerJob")
	assert.Equal(t, "sync_bom", call.Input.PathParams["id"])
	assert.Equal(t, 1, inv.Count("listSchedulerJobMetrics"))
}

func TestCostDashboard(t *testing.T) {
	inv := erptest.New().
		Reply("getProjectCostSummary", jsonBody(t, `{"data":{"project_id":7,"project_name":"焊装线","budgets":[
			{"category":"材料","budget_amount":100000,"used_amount":85000},
			{"category":"人工","budget_amount":"50000","used_amount":"60000"}
		]}}`)).
		Fail("listProjectCostItems", model.NewBackendUnavailableError())

	d, err := newService(inv).CostDashboard(context.Background(), 7, listview.Query{})
	require.NoError(t, err)
	require.Len(t, d.Budgets, 2)

	assert.Equal(t, display.UsageWarning, d.Budgets[0].Level)
	assert.Equal(t, "85.0%", d.Budgets[0].UsageText)
	assert.Equal(t, "预警", d.Budgets[0].Badge.Label)
	assert.Equal(t, display.UsageOver, d.Budgets[1].Level)
	assert.Equal(t, "-¥10,000.00", d.Budgets[1].RemainingText)

	assert.Equal(t, "合计", d.Totals.Category)
	assert.True(t, d.Totals.UsageRate.Equal(decimal.RequireFromString("96.67")))
	assert.Equal(t, "¥150,000.00", d.Totals.BudgetText)

	assert.NotEmpty(t, d.ItemsError)
	assert.Empty(t, d.Items.Items)
}

func TestProjectStages(t *testing.T) {
	inv := erptest.New().Reply("getProjectStages", jsonBody(t, `{"data":{"project_id":9002,"project_code":"P-9002","current_stage":"DESIGN","stages":[
		{"stage_code":"REQUIREMENT","stage_name":"需求确认","sequence":1,"status":"COMPLETED","progress":100},
		{"stage_code":"DESIGN","stage_name":"方案设计","sequence":2,"status":"IN_PROGRESS","progress":45,"is_delayed":true}
	]}}`))
	svc := newService(inv)

	v, err := svc.ProjectStages(context.Background(), 9002)
	require.NoError(t, err)
	require.Len(t, v.Stages, 2)
	assert.Equal(t, 1, v.Completed)
	assert.Equal(t, 1, v.Delayed)
	assert.Equal(t, 72.5, v.Progress)
	assert.True(t, v.Stages[1].Current)
	assert.Equal(t, []model.ActionState{{ID: ActionAdvance, Enabled: true}}, v.Stages[1].Actions)
	assert.False(t, v.Stages[0].Actions[0].Enabled)

	out, err := svc.AdvanceStage(context.Background(), 9002, "DESIGN", resource.Request[model.AdvanceStageForm]{})
	require.NoError(t, err)
	assert.False(t, out.DialogOpen)
	assert.Equal(t, 2, inv.Count("getProjectStages"))
}

func TestPipeline_groupsByCurrentStage(t *testing.T) {
	inv := erptest.New().Reply("getStagePipeline", jsonBody(t, `[
		{"project_id":1,"project_code":"P-1","current_stage":"DESIGN","stages":[{"stage_code":"DESIGN","stage_name":"方案设计","status":"DELAYED","progress":30,"is_delayed":true}]},
		{"project_id":2,"project_code":"P-2","current_stage":"DESIGN","stages":[]},
		{"project_id":3,"project_code":"P-3","current_stage":"ASSEMBLY"}
	]`))
	p, err := newService(inv).Pipeline(context.Background(), listview.Query{Category: "DESIGN"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"DESIGN": 2, "ASSEMBLY": 1}, p.ByStage)
	require.Len(t, p.List.Items, 2)
	assert.True(t, p.List.Items[0].Delayed)
	assert.Equal(t, "已延期", p.List.Items[0].Badge.Label)
}

func TestTemplates_optimisticApplyCount(t *testing.T) {
	before := jsonBody(t, `[{"id":7,"name":"焊装线方案","category":"AUTOMOTIVE","status":"ACTIVE","apply_count":5,"rating_count":2}]`)
	after := jsonBody(t, `[{"id":7,"name":"焊装线方案","category":"AUTOMOTIVE","status":"ACTIVE","apply_count":6,"rating_count":2}]`)
	inv := erptest.New().On("listPresaleTemplates",
		erptest.Response{Body: before},
		erptest.Response{Body: before},
		erptest.Response{Body: after},
	)
	svc := newService(inv)
	ctx := sessionCtx("sess-1")

	p, err := svc.Templates(ctx, listview.Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.List.Items[0].ApplyCount.Value)

	out, err := svc.ApplyTemplate(ctx, 7, resource.Request[model.ApplyTemplateForm]{}, listview.Query{})
	require.NoError(t, err)
	reloaded := out.Data.(TemplatesPage)
	assert.Equal(t, int64(6), reloaded.List.Items[0].ApplyCount.Value)
	assert.True(t, reloaded.List.Items[0].ApplyCount.PendingSync)
	assert.False(t, reloaded.List.Items[0].RatingCount.PendingSync)

	synced, err := svc.Templates(ctx, listview.Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), synced.List.Items[0].ApplyCount.Value)
	assert.False(t, synced.List.Items[0].ApplyCount.PendingSync)
}

func TestApplyTemplate_withoutPriorLoad(t *testing.T) {
	before := jsonBody(t, `[{"id":7,"name":"焊装线方案","category":"AUTOMOTIVE","status":"ACTIVE","apply_count":5,"rating_count":2}]`)

	for name, ctx := range map[string]context.Context{"fresh session": sessionCtx("fresh"), "no session": context.Background()} {
		t.Run(name, func(t *testing.T) {
			inv := erptest.New().Reply("listPresaleTemplates", before)
			out, err := newService(inv).ApplyTemplate(ctx, 7, resource.Request[model.ApplyTemplateForm]{}, listview.Query{})
			require.NoError(t, err)

			row := out.Data.(TemplatesPage).List.Items[0]
			assert.Equal(t, int64(6), row.ApplyCount.Value)
			assert.True(t, row.ApplyCount.PendingSync)
			assert.Equal(t, 1, inv.Count("applyPresaleTemplate"))
		})
	}
}

func TestProjectStages_reusesSessionLoader(t *testing.T) {
	inv := erptest.New().Reply("getProjectStages", jsonBody(t, `{"data":{"project_id":9002,"stages":[]}}`))
	svc := newService(inv)
	ctx := sessionCtx("a")

	first, err := svc.ProjectStages(ctx, 9002)
	require.NoError(t, err)
	second, err := svc.ProjectStages(ctx, 9002)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.scope.Len())
	assert.Greater(t, second.RequestID, first.RequestID)
	assert.Equal(t, 1, second.Total)
	assert.Equal(t, 2, inv.Count("getProjectStages"))
}

func TestForgetDropsSessionLoaders(t *testing.T) {
	inv := erptest.New()
	svc := newService(inv)
	_, _ = svc.Templates(sessionCtx("a"), listview.Query{})
	_, _ = svc.Arrivals(sessionCtx("a"), listview.Query{})
	_, _ = svc.Arrivals(sessionCtx("b"), listview.Query{})
	assert.Equal(t, 3, svc.scope.Len())

	svc.Forget("a")
	assert.Equal(t, 1, svc.scope.Len())
}
