package dashboard

import (
	"strings"

	"github.com/platinummonkey/clientbill/pkg/apperr"
)

var (
	ErrEventNotFound   = apperr.NotFound("Evento não encontrado")
	ErrNoteNotFound    = apperr.NotFound("Nota não encontrada")
	ErrTitleRequired   = apperr.Invalid("Título do evento é obrigatório")
	ErrStartRequired   = apperr.Invalid("Data de início do evento é obrigatória")
	ErrEndBeforeStart  = apperr.Invalid("Término do evento não pode ser anterior ao início")
	ErrContentRequired = apperr.Invalid("Conteúdo da nota é obrigatório")
	ErrInvalidColor    = apperr.Invalid("Cor da nota inválida")
	ErrInvalidRange    = apperr.Invalid("Período inválido")
)

// Validate normalizes the input and checks the event rules
func (in *EventInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return ErrTitleRequired
	}
	if in.StartsAt.IsZero() {
		return ErrStartRequired
	}
	if in.EndsAt != nil && in.EndsAt.Before(in.StartsAt) {
		return ErrEndBeforeStart
	}
	return nil
}

// Validate normalizes the input and checks the note rules
func (in *NoteInput) Validate() error {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return ErrContentRequired
	}
	if in.Color == "" {
		in.Color = NoteYellow
	}
	if !in.Color.Valid() {
		return ErrInvalidColor
	}
	return nil
}
