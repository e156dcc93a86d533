package middlewares

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"buchhaltung-backend/ledger"
)

var validate = newValidator()

// newValidator reports failures under the json field name, so validation
// errors line up with the request body the client actually sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// BindAndValidate parses the request body into dst and validates it. Parse
// failures are a 400; validation failures surface as ledger.ValidationErrors
// so DTO and domain errors share one response shape.
func BindAndValidate(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return validationResult(validate.Struct(dst))
}

// ValidateStruct validates any struct value with the shared validator.
func ValidateStruct(v any) error {
	return validationResult(validate.Struct(v))
}

func validationResult(err error) error {
	if err == nil {
		return nil
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := ledger.ValidationErrors{}
	for _, fe := range ves {
		out.Add(fe.Field(), "failed %q validation", fe.Tag())
	}
	return out
}
