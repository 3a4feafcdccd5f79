package clients

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMonthlyInput() *ClientInput {
	return &ClientInput{
		Name:          "Padaria Central",
		PaymentMode:   PaymentModeMonthly,
		MonthlyFee:    decimal.NewFromInt(450),
		DueDay:        10,
		ContractStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestClientInput_Validate(t *testing.T) {
	before := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(in *ClientInput)
		want   error
	}{
		{"valid monthly", func(in *ClientInput) {}, nil},
		{"blank name", func(in *ClientInput) { in.Name = "   " }, ErrNameRequired},
		{"due day zero", func(in *ClientInput) { in.DueDay = 0 }, ErrInvalidDueDay},
		{"due day 32", func(in *ClientInput) { in.DueDay = 32 }, ErrInvalidDueDay},
		{"due day 31", func(in *ClientInput) { in.DueDay = 31 }, nil},
		{"unknown mode", func(in *ClientInput) { in.PaymentMode = "WEEKLY" }, ErrInvalidMode},
		{"negative fee", func(in *ClientInput) { in.MonthlyFee = decimal.NewFromInt(-1) }, ErrNegativeFee},
		{"missing start", func(in *ClientInput) { in.ContractStart = time.Time{} }, ErrContractStart},
		{"end before start", func(in *ClientInput) { in.ContractEnd = &before }, ErrContractRange},
		{"installments without plan", func(in *ClientInput) { in.PaymentMode = PaymentModeInstallments }, ErrPlanRequired},
		{"plan without parcels", func(in *ClientInput) {
			in.PaymentMode = PaymentModeInstallments
			in.Plan = &InstallmentPlan{TotalAmount: decimal.NewFromInt(900), FirstDueDate: in.ContractStart}
		}, ErrInvalidPlanCount},
		{"plan without total", func(in *ClientInput) {
			in.PaymentMode = PaymentModeInstallments
			in.Plan = &InstallmentPlan{Count: 3, FirstDueDate: in.ContractStart}
		}, ErrInvalidPlanTotal},
		{"plan without first due", func(in *ClientInput) {
			in.PaymentMode = PaymentModeInstallments
			in.Plan = &InstallmentPlan{Count: 3, TotalAmount: decimal.NewFromInt(900)}
		}, ErrPlanFirstDue},
		{"negative interval", func(in *ClientInput) {
			in.PaymentMode = PaymentModeInstallments
			in.Plan = &InstallmentPlan{Count: 3, TotalAmount: decimal.NewFromInt(900), FirstDueDate: in.ContractStart, IntervalDays: -1}
		}, ErrInvalidPlanPeriod},
		{"valid installments", func(in *ClientInput) {
			in.PaymentMode = PaymentModeInstallments
			in.Plan = &InstallmentPlan{Count: 3, TotalAmount: decimal.NewFromInt(900), FirstDueDate: in.ContractStart, IntervalDays: 30}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validMonthlyInput()
			tt.mutate(in)
			err := in.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClientInput_ValidateDefaultsAndDropsPlan(t *testing.T) {
	in := validMonthlyInput()
	in.PaymentMode = ""
	in.Name = "  Padaria  "
	in.Plan = &InstallmentPlan{Count: 2}

	require.NoError(t, in.Validate())
	assert.Equal(t, PaymentModeMonthly, in.PaymentMode)
	assert.Equal(t, "Padaria", in.Name)
	assert.Nil(t, in.Plan)
}

func TestClient_ActiveDuring(t *testing.T) {
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	april := march.AddDate(0, 1, 0)
	endFeb := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	midMarch := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   *time.Time
		want  bool
	}{
		{"open ended", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), nil, true},
		{"starts mid month", midMarch, nil, true},
		{"starts next month", april, nil, false},
		{"ended before month", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), &endFeb, false},
		{"ends mid month", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), &midMarch, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{ContractStart: tt.start, ContractEnd: tt.end}
			assert.Equal(t, tt.want, c.ActiveDuring(march, april))
		})
	}
}
