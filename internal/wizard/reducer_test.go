package wizard

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/dagym/contract-backend/internal/plans"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func filledState() FormState {
	return ReduceAll(InitialState(),
		MergeBusinessInfo{Patch: BusinessInfoPatch{
			BusinessName:       strPtr("다짐 피트니스"),
			BusinessNumber:     strPtr("123-45-67890"),
			RepresentativeName: strPtr("홍길동"),
			BusinessAddress:    strPtr("서울시 강남구 테헤란로 1"),
			BusinessType:       strPtr("서비스업"),
			BusinessCategory:   strPtr("헬스장"),
		}},
		MergeAccountInfo{Patch: AccountInfoPatch{
			BankName:      strPtr("국민은행"),
			AccountNumber: strPtr("12345678901"),
			AccountHolder: strPtr("홍길동"),
		}},
		MergeRepresentativeInfo{Patch: RepresentativeInfoPatch{
			Name:                strPtr("홍길동"),
			PhoneNumber:         strPtr("010-1234-5678"),
			Address:             strPtr("서울시 서초구"),
			AgreeToPersonalInfo: boolPtr(true),
		}},
		AddSelectedPlan{Plan: plans.SelectedPlan{PlanID: "light", PlanName: "라이트플랜", BillingType: "yearly", Price: 1188000}},
	)
}

func TestInitialState(t *testing.T) {
	state := InitialState()
	if state.CurrentStep != StepBusiness {
		t.Fatalf("expected step 1, got %d", state.CurrentStep)
	}
	if state.SelectedPlans == nil || len(state.SelectedPlans) != 0 {
		t.Fatalf("expected empty non-nil plan list, got %#v", state.SelectedPlans)
	}
	if !IsBlank(state) {
		t.Fatal("expected initial state to be blank")
	}
}

func TestReduceMergeKeepsUnspecifiedFields(t *testing.T) {
	state := filledState()
	next := Reduce(state, MergeBusinessInfo{Patch: BusinessInfoPatch{BusinessName: strPtr("새 이름")}})

	require.Equal(t, "새 이름", next.BusinessInfo.BusinessName)
	require.Equal(t, state.BusinessInfo.BusinessNumber, next.BusinessInfo.BusinessNumber)
	require.Equal(t, state.BusinessInfo.BusinessAddress, next.BusinessInfo.BusinessAddress)
	require.Equal(t, state.AccountInfo, next.AccountInfo)
	require.Equal(t, "다짐 피트니스", state.BusinessInfo.BusinessName, "input state must not change")
}

func TestReduceMergeCanClearField(t *testing.T) {
	next := Reduce(filledState(), MergeAccountInfo{Patch: AccountInfoPatch{AccountNumber: strPtr("")}})
	require.Equal(t, "", next.AccountInfo.AccountNumber)
	require.False(t, IsStepCompleted(next, StepAccount))
}

func TestReduceSetCurrentStepIsUnchecked(t *testing.T) {
	next := Reduce(InitialState(), SetCurrentStep{Step: 5})
	require.Equal(t, 5, next.CurrentStep)
	require.False(t, CanProceedToStep(next, 5))
}

func TestReduceAddDoesNotDeduplicate(t *testing.T) {
	plan := plans.SelectedPlan{PlanID: "manager", PlanName: "매니저", BillingType: "yearly", Price: 53900}
	next := ReduceAll(InitialState(), AddSelectedPlan{Plan: plan}, AddSelectedPlan{Plan: plan})
	require.Len(t, next.SelectedPlans, 2)
}

func TestReduceRemoveIsIdempotent(t *testing.T) {
	state := filledState()
	once := Reduce(state, RemoveSelectedPlan{PlanID: "light"})
	twice := Reduce(once, RemoveSelectedPlan{PlanID: "light"})
	require.Empty(t, once.SelectedPlans)
	require.Equal(t, once, twice)

	missing := Reduce(state, RemoveSelectedPlan{PlanID: "does-not-exist"})
	require.Equal(t, state.SelectedPlans, missing.SelectedPlans)
}

func TestReduceReplaceSelectedPlans(t *testing.T) {
	list := []plans.SelectedPlan{
		{PlanID: "standard", PlanName: "스탠다드플랜", BillingType: "monthly", Price: 517000},
	}
	next := Reduce(filledState(), ReplaceSelectedPlans{Plans: list})
	require.Equal(t, list, next.SelectedPlans)

	list[0].Price = 1
	require.Equal(t, int64(517000), next.SelectedPlans[0].Price, "reducer must copy the payload")
}

func TestResetThenLoadDraftRoundTrip(t *testing.T) {
	draft := Reduce(filledState(), SetCurrentStep{Step: StepPlans})

	reset := Reduce(draft, Reset{})
	require.Equal(t, InitialState(), reset)

	restored := Reduce(reset, LoadDraft{State: draft})
	if !reflect.DeepEqual(draft, restored) {
		t.Fatalf("expected restored draft to equal original\nwant %#v\ngot  %#v", draft, restored)
	}
}

func TestLoadDraftDoesNotAlias(t *testing.T) {
	draft := filledState()
	restored := Reduce(InitialState(), LoadDraft{State: draft})

	restored.SelectedPlans[0].Price = 0
	*restored.RepresentativeInfo.AgreeToPersonalInfo = false

	require.Equal(t, int64(1188000), draft.SelectedPlans[0].Price)
	require.True(t, *draft.RepresentativeInfo.AgreeToPersonalInfo)
}

func TestReduceNilActionCopies(t *testing.T) {
	state := filledState()
	next := Reduce(state, nil)
	require.Equal(t, state, next)
	next.SelectedPlans[0].PlanID = "mutated"
	require.Equal(t, "light", state.SelectedPlans[0].PlanID)
}

func TestTotalAmount(t *testing.T) {
	state := ReduceAll(InitialState(),
		AddSelectedPlan{Plan: plans.SelectedPlan{PlanID: "light", Price: 165000}},
		AddSelectedPlan{Plan: plans.SelectedPlan{PlanID: "manager", Price: 1742}},
	)
	require.Equal(t, int64(166742), state.TotalAmount())
}

func TestEnvelopeDecode(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    Action
		wantErr bool
	}{
		{
			name: "set step",
			raw:  `{"type":"SET_CURRENT_STEP","payload":{"step":3}}`,
			want: SetCurrentStep{Step: 3},
		},
		{
			name: "business patch",
			raw:  `{"type":"SET_BUSINESS_INFO","payload":{"businessName":"A"}}`,
			want: MergeBusinessInfo{Patch: BusinessInfoPatch{BusinessName: strPtr("A")}},
		},
		{
			name: "remove plan",
			raw:  `{"type":"REMOVE_SELECTED_PLAN","payload":{"planId":"manager"}}`,
			want: RemoveSelectedPlan{PlanID: "manager"},
		},
		{
			name: "reset needs no payload",
			raw:  `{"type":"RESET_FORM"}`,
			want: Reset{},
		},
		{
			name:    "missing payload",
			raw:     `{"type":"SET_ACCOUNT_INFO"}`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			raw:     `{"type":"DELETE_EVERYTHING","payload":{}}`,
			wantErr: true,
		},
		{
			name:    "malformed payload",
			raw:     `{"type":"ADD_SELECTED_PLAN","payload":"light"}`,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var env Envelope
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &env))
			action, err := env.Decode()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, action)
		})
	}
}

func TestFormStateJSONShape(t *testing.T) {
	raw, err := json.Marshal(InitialState())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded, "currentStep")
	require.Contains(t, decoded, "businessInfo")
	require.Contains(t, decoded, "selectedPlans")
	require.Equal(t, []any{}, decoded["selectedPlans"])
}
