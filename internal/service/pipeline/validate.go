package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"

	"fridgesight/internal/errs"
	"fridgesight/internal/model"

	"github.com/go-playground/validator"
)

// detectionBatch is the schema a reply must match. Pointer fields tell a
// missing key apart from a zero value.
type detectionBatch struct {
	Items []detectionItem `validate:"required,dive"`
}

type detectionItem struct {
	Type       *string       `json:"type" validate:"required,notblank"`
	Brand      *string       `json:"brand" validate:"required"`
	Quantity   *itemQuantity `json:"quantity" validate:"required"`
	Confidence *string       `json:"confidence" validate:"required,oneof=High Medium Low"`
}

type itemQuantity struct {
	Count *int    `json:"count" validate:"required,gte=0"`
	Size  *string `json:"size" validate:"required"`
}

var schema = newSchemaValidator()

func newSchemaValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate extracts and parses a reply into detected items. Every item must
// carry exactly the keys type, brand, quantity and confidence; quantity must
// hold count and size. Nothing is coerced: any deviation is a ValidationError
// carrying both the raw and the cleaned text.
func Validate(raw string) ([]model.DetectedItem, error) {
	cleaned := ExtractJSON(raw)
	fail := func(reason string, err error) error {
		return &errs.ValidationError{Reason: reason, Raw: raw, Cleaned: cleaned, Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	var envelope map[string]json.RawMessage
	if err := dec.Decode(&envelope); err != nil {
		return nil, fail("not a JSON object", err)
	}
	if dec.More() {
		return nil, fail("trailing data after JSON object", nil)
	}
	itemsJSON, ok := envelope["items"]
	if !ok {
		return nil, fail("missing 'items' key", nil)
	}

	var batch detectionBatch
	itemsDec := json.NewDecoder(bytes.NewReader(itemsJSON))
	itemsDec.DisallowUnknownFields()
	if err := itemsDec.Decode(&batch.Items); err != nil {
		return nil, fail("malformed items", err)
	}

	for _, item := range batch.Items {
		if item.Confidence != nil {
			*item.Confidence = canonicalConfidence(*item.Confidence)
		}
	}
	if err := schema.Struct(&batch); err != nil {
		return nil, fail("schema violation", err)
	}

	items := make([]model.DetectedItem, 0, len(batch.Items))
	for _, item := range batch.Items {
		items = append(items, model.DetectedItem{
			Type:       *item.Type,
			Brand:      *item.Brand,
			Quantity:   model.Quantity{Count: *item.Quantity.Count, Size: *item.Quantity.Size},
			Confidence: model.Confidence(*item.Confidence),
		})
	}
	return items, nil
}

// canonicalConfidence returns the canonical label, or the input unchanged
// when it is not a known label.
func canonicalConfidence(label string) string {
	if c, err := model.ParseConfidence(label); err == nil {
		return string(c)
	}
	return label
}
