package billing

import "github.com/platinummonkey/clientbill/pkg/apperr"

var (
	ErrInvoiceNotFound  = apperr.NotFound("Fatura não encontrada")
	ErrNoItems          = apperr.Invalid("Fatura deve ter pelo menos um item")
	ErrItemDescription  = apperr.Invalid("Descrição do item é obrigatória")
	ErrItemQuantity     = apperr.Invalid("Quantidade do item deve ser maior que zero")
	ErrItemPrice        = apperr.Invalid("Preço unitário não pode ser negativo")
	ErrNegativeDiscount = apperr.Invalid("Desconto não pode ser negativo")
	ErrNegativeTax      = apperr.Invalid("Impostos não podem ser negativos")
	ErrNegativeTotal    = apperr.Invalid("Total da fatura não pode ser negativo")
	ErrMissingDates     = apperr.Invalid("Datas de emissão e vencimento são obrigatórias")
	ErrDueBeforeIssue   = apperr.Invalid("Data de vencimento não pode ser anterior à data de emissão")
	ErrInvalidAmount    = apperr.Invalid("Valor do pagamento deve ser maior que zero")
	ErrInvalidStatus    = apperr.Invalid("Status de fatura inválido")

	ErrNotDraft    = apperr.Conflict("Apenas faturas em rascunho podem ser emitidas")
	ErrAlreadyPaid = apperr.Conflict("Fatura já paga; não pode cancelar")
	ErrAlreadyVoid = apperr.Conflict("Fatura já cancelada")
	ErrHasPayments = apperr.Conflict("Fatura possui pagamentos registrados; não pode cancelar")
	ErrNotPayable  = apperr.Conflict("Fatura não está em aberto para pagamento")
	ErrUnderpaid   = apperr.Conflict("Valor insuficiente para quitar a fatura")
	ErrNotOverdue  = apperr.Conflict("Fatura não está vencida")
	ErrStaleStatus = apperr.Conflict("Fatura foi alterada por outra operação; tente novamente")
)

// ErrDuplicatePeriod is returned when a client already has a live invoice for the period
var ErrDuplicatePeriod = apperr.Conflict("Cliente já possui fatura para este período")
