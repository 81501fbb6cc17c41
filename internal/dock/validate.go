package dock

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/store"
)

const (
	maxTitleLen = 300
	maxTagLen   = 64
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

var (
	itemTypeRule = validation.In(anySlice(models.ItemTypes)...)
	statusRule   = validation.In(anySlice(models.Statuses)...)
)

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
}

func validateRecord(rec *models.Record) error {
	isList := rec.Type == models.TypeList
	return invalid(validation.ValidateStruct(rec,
		validation.Field(&rec.ID, validation.Match(idPattern)),
		validation.Field(&rec.Type, validation.Required, itemTypeRule),
		validation.Field(&rec.Title, validation.Length(0, maxTitleLen)),
		validation.Field(&rec.Status, statusRule),
		validation.Field(&rec.Tags, tagsRule),
		validation.Field(&rec.Items, validation.When(!isList, validation.Empty)),
		validation.Field(&rec.Body, validation.When(isList, validation.Empty)),
		validation.Field(&rec.ContentJSON, validation.When(isList, validation.Empty)),
	))
}

var tagsRule = validation.Each(validation.Required, validation.Length(1, maxTagLen))

func validatePatch(p *models.Patch) error {
	err := validation.ValidateStruct(p,
		validation.Field(&p.Title, validation.Length(0, maxTitleLen)),
		validation.Field(&p.Status, statusRule),
	)
	if err == nil && p.Tags != nil {
		err = validation.Errors{"tags": validation.Validate(*p.Tags, tagsRule)}.Filter()
	}
	return invalid(err)
}

func validateFilter(f *models.Filter) error {
	return invalid(validation.ValidateStruct(f,
		validation.Field(&f.Type, itemTypeRule),
		validation.Field(&f.Status, statusRule),
		validation.Field(&f.Limit, validation.Min(0), validation.Max(store.MaxLimit)),
		validation.Field(&f.Offset, validation.Min(0)),
	))
}
