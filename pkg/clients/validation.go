package clients

import (
	"strings"

	"github.com/platinummonkey/clientbill/pkg/apperr"
)

var (
	ErrNotFound          = apperr.NotFound("Cliente não encontrado")
	ErrNameRequired      = apperr.Invalid("Nome é obrigatório")
	ErrInvalidDueDay     = apperr.Invalid("Dia de vencimento deve estar entre 1 e 31")
	ErrInvalidMode       = apperr.Invalid("Modo de pagamento inválido")
	ErrNegativeFee       = apperr.Invalid("Mensalidade não pode ser negativa")
	ErrContractStart     = apperr.Invalid("Data de início do contrato é obrigatória")
	ErrContractRange     = apperr.Invalid("Data de término do contrato não pode ser anterior ao início")
	ErrPlanRequired      = apperr.Invalid("Plano de parcelamento é obrigatório para clientes parcelados")
	ErrInvalidPlanCount  = apperr.Invalid("Número de parcelas deve ser maior que zero")
	ErrInvalidPlanTotal  = apperr.Invalid("Valor total do parcelamento deve ser maior que zero")
	ErrPlanFirstDue      = apperr.Invalid("Data do primeiro vencimento é obrigatória")
	ErrInvalidPlanPeriod = apperr.Invalid("Intervalo entre parcelas não pode ser negativo")
)

// Validate normalizes the input in place and checks the client rules
func (in *ClientInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.PaymentMode == "" {
		in.PaymentMode = PaymentModeMonthly
	}
	if !in.PaymentMode.Valid() {
		return ErrInvalidMode
	}
	if in.DueDay < 1 || in.DueDay > 31 {
		return ErrInvalidDueDay
	}
	if in.MonthlyFee.IsNegative() {
		return ErrNegativeFee
	}
	if in.ContractStart.IsZero() {
		return ErrContractStart
	}
	if in.ContractEnd != nil && in.ContractEnd.Before(in.ContractStart) {
		return ErrContractRange
	}

	if in.PaymentMode == PaymentModeInstallments {
		if in.Plan == nil {
			return ErrPlanRequired
		}
		if in.Plan.Count <= 0 {
			return ErrInvalidPlanCount
		}
		if !in.Plan.TotalAmount.IsPositive() {
			return ErrInvalidPlanTotal
		}
		if in.Plan.FirstDueDate.IsZero() {
			return ErrPlanFirstDue
		}
		if in.Plan.IntervalDays < 0 {
			return ErrInvalidPlanPeriod
		}
	} else {
		in.Plan = nil
	}

	return nil
}
