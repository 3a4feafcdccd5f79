package payments

import "github.com/platinummonkey/clientbill/pkg/apperr"

var (
	ErrInstallmentNotFound = apperr.NotFound("Parcela não encontrada")
	ErrNoMonthInvoice      = apperr.NotFound("Nenhuma fatura encontrada para o mês informado")
	ErrInvalidAmount       = apperr.Invalid("Valor do pagamento deve ser maior que zero")
	ErrMonthRequired       = apperr.Invalid("Mês de referência é obrigatório")
	ErrNotMonthlyClient    = apperr.Invalid("Cliente não está no modo de pagamento mensal")
	ErrNotInstallmentPlan  = apperr.Invalid("Cliente não possui plano de parcelamento")
	ErrMonthAlreadyPaid    = apperr.Conflict("Fatura do mês já está paga")
	ErrMonthNotPayable     = apperr.Conflict("Fatura do mês não está em aberto para pagamento")
	ErrAlreadyConfirmed    = apperr.Conflict("Parcela já confirmada")
)
