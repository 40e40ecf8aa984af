package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aulaplatform/aulaledger/internal/models"
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("currency", validateCurrency)
	_ = validate.RegisterValidation("transactiontype", validateTransactionType)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

func validateCurrency(fl validator.FieldLevel) bool {
	return models.Currency(fl.Field().String()).Valid()
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.TransactionType(fl.Field().String()).Valid()
}
