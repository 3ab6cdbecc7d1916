package dto

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gymledger/internal/domain"
)

func TestValidate_Messages(t *testing.T) {
	amount := decimal.RequireFromString("10")

	tests := []struct {
		name string
		req  any
		want string
	}{
		{
			name: "missing opening float",
			req:  &OpenRegisterRequest{},
			want: "opening_float is required",
		},
		{
			name: "bad direction",
			req:  &MovementRequest{Direction: "SIDEWAYS", Amount: &amount, Description: "x"},
			want: "direction must be one of [IN OUT]",
		},
		{
			name: "bad email",
			req:  &LoginRequest{Email: "nope", Password: "secret"},
			want: "email must be a valid email",
		},
		{
			name: "too few installments",
			req: &InstallmentsRequest{
				Category: "RENT", Description: "rent", TotalInstallments: 1,
				TotalAmount: &amount, FirstDueDate: &Date{Time: time.Now()},
			},
			want: "total_installments must be at least 2",
		},
		{
			name: "due day out of range",
			req: func() any {
				day := 40
				return &CreateEnrollmentRequest{StudentID: "s", PlanID: "p", StartDate: &Date{Time: time.Now()}, DueDay: &day}
			}(),
			want: "due_day must be at most 31",
		},
		{
			name: "unknown role",
			req:  &CreateUserRequest{Email: "a@b.co", Password: "x", Role: "owner"},
			want: "role must be one of [admin manager staff]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := domain.Message(err); got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	amount := decimal.RequireFromString("50")
	req := &CashOperationRequest{Amount: &amount, Description: "sangria"}
	if err := Validate(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDate_UnmarshalJSON(t *testing.T) {
	var req CreateAccountRequest
	if err := json.Unmarshal([]byte(`{"due_date":"2024-03-15"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if req.DueDate == nil || !req.DueDate.Equal(want) {
		t.Fatalf("due date = %v, want %v", req.DueDate, want)
	}

	var bad CreateAccountRequest
	err := json.Unmarshal([]byte(`{"due_date":"15/03/2024"}`), &bad)
	if err == nil || !strings.Contains(err.Error(), "expected 2006-01-02") {
		t.Fatalf("expected layout error, got %v", err)
	}

	var null PaymentRequest
	if err := json.Unmarshal([]byte(`{"payment_date":null}`), &null); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if null.PaymentDate != nil {
		t.Fatalf("expected nil payment date, got %v", null.PaymentDate)
	}
}

func TestDate_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}{A: NewDate(time.Date(2024, 1, 31, 18, 30, 0, 0, time.UTC))})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":"2024-01-31","b":null}` {
		t.Fatalf("unexpected json %s", b)
	}
}

func TestOpenRegisterRequest_DefaultsActor(t *testing.T) {
	amount := decimal.RequireFromString("100")
	req := &OpenRegisterRequest{OpeningFloat: &amount}

	in := req.ToUseCaseInput("user-1")
	if in.OpenedBy != "user-1" || !in.OpeningFloat.Equal(amount) {
		t.Fatalf("unexpected input %+v", in)
	}

	req.OpenedBy = "maria"
	if got := req.ToUseCaseInput("user-1").OpenedBy; got != "maria" {
		t.Fatalf("opened by = %q, want maria", got)
	}
}

func TestInstallmentsRequest_IsPayable(t *testing.T) {
	amount := decimal.RequireFromString("1200")
	first := NewDate(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	req := &InstallmentsRequest{
		Category: "EQUIPMENT", Description: "treadmill", TotalInstallments: 12,
		TotalAmount: &amount, FirstDueDate: &first,
	}

	in := req.ToUseCaseInput()
	if in.Base.Kind != domain.KindPayable {
		t.Fatalf("kind = %s, want PAYABLE", in.Base.Kind)
	}
	if in.TotalInstallments != 12 || !in.FirstDueDate.Equal(first.Time) {
		t.Fatalf("unexpected input %+v", in)
	}
}

func TestUpdateEnrollmentRequest_ToPatch(t *testing.T) {
	method := "PIX"
	req := &UpdateEnrollmentRequest{PaymentMethod: &method, ClearDiscount: true}

	patch := req.ToPatch()
	if patch.PaymentMethod == nil || *patch.PaymentMethod != domain.PaymentPix {
		t.Fatalf("payment method = %v, want PIX", patch.PaymentMethod)
	}
	if !patch.ClearDiscount || patch.StartDate != nil {
		t.Fatalf("unexpected patch %+v", patch)
	}
}

func TestUpdateUserRequest_ToUseCaseInput(t *testing.T) {
	role := "manager"
	in := (&UpdateUserRequest{Role: &role}).ToUseCaseInput("u-1")
	if in.ID != "u-1" || in.Role == nil || *in.Role != domain.RoleManager {
		t.Fatalf("unexpected input %+v", in)
	}
}
