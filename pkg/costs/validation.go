package costs

import (
	"strings"

	"github.com/platinummonkey/clientbill/pkg/apperr"
)

var (
	ErrCostItemNotFound     = apperr.NotFound("Item de custo não encontrado")
	ErrSubscriptionNotFound = apperr.NotFound("Assinatura de custo não encontrada")
	ErrNameRequired         = apperr.Invalid("Nome do item de custo é obrigatório")
	ErrNegativeAmount       = apperr.Invalid("Valor do custo não pode ser negativo")
	ErrClientRequired       = apperr.Invalid("Cliente é obrigatório")
	ErrCostItemRequired     = apperr.Invalid("Item de custo é obrigatório")
	ErrStartRequired        = apperr.Invalid("Data de início é obrigatória")
	ErrEndBeforeStart       = apperr.Invalid("Data de término não pode ser anterior ao início")
	ErrCostItemInactive     = apperr.Conflict("Item de custo está inativo")
)

// Validate normalizes the input and checks the cost item rules
func (in *CostItemInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.DefaultAmount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Validate checks the subscription rules
func (in *SubscriptionInput) Validate() error {
	if in.ClientID <= 0 {
		return ErrClientRequired
	}
	if in.CostItemID <= 0 {
		return ErrCostItemRequired
	}
	if in.Amount != nil && in.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if in.StartDate.IsZero() {
		return ErrStartRequired
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}
