package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

const maxBodyBytes = 1 << 20

type validatorSvc struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	validatorOnce sync.Once
	validatorInst *validatorSvc
)

// requestValidator returns the process-wide validator with english messages
// keyed by json field names.
func requestValidator() *validatorSvc {
	validatorOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = entranslations.RegisterDefaultTranslations(v, trans)
		registerShortMax(v, trans)

		validatorInst = &validatorSvc{validate: v, translator: trans}
	})
	return validatorInst
}

func registerShortMax(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterTranslation("max", trans,
		func(ut ut.Translator) error {
			return ut.Add("max", "{0} must be at most {1}", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("max", fe.Field(), fe.Param())
			return msg
		},
	)
}

// validateStruct returns the first translated validation failure.
func validateStruct(v any) error {
	err := requestValidator().validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s", ErrBadRequest, verrs[0].Translate(requestValidator().translator))
	}
	return fmt.Errorf("%w: %w", ErrBadRequest, err)
}

// decodeJSON decodes and validates the request body into T. Unknown fields
// and trailing data are rejected. An empty body yields the zero T when
// allowEmpty is set.
func decodeJSON[T any](r *http.Request, allowEmpty bool) (T, error) {
	dst, err := decodeBody[T](r, allowEmpty)
	if err != nil {
		return dst, err
	}
	if err := validateStruct(dst); err != nil {
		return dst, err
	}
	return dst, nil
}

func decodeBody[T any](r *http.Request, allowEmpty bool) (T, error) {
	var dst T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return dst, nil
			}
			return dst, fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return dst, fmt.Errorf("%w: invalid JSON: %w", ErrBadRequest, err)
	}
	if dec.More() {
		return dst, fmt.Errorf("%w: unexpected trailing data", ErrBadRequest)
	}
	return dst, nil
}

// decodeStrict decodes one embedded document with the same rules as a body.
func decodeStrict[T any](raw json.RawMessage) (T, error) {
	var dst T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		return dst, err
	}
	if dec.More() {
		return dst, errors.New("unexpected trailing data")
	}
	return dst, nil
}

// guestIDOf extracts the id of a guest entry that failed strict decoding.
func guestIDOf(raw json.RawMessage) string {
	var g struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(raw, &g) != nil {
		return ""
	}
	return g.ID
}
