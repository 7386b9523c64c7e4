package http

import (
	"errors"
	"net/http"

	"socios/internal/core"
	"socios/internal/export"
	"socios/internal/services"
)

// validationMessages are shown to users for input errors.
var validationMessages = []struct {
	err error
	msg string
}{
	{core.ErrInvalidDNI, "El DNI debe tener 8 dígitos"},
	{core.ErrEmptyNames, "Ingrese los nombres"},
	{core.ErrEmptySurname, "Ingrese el apellido paterno"},
	{core.ErrInvalidAge, "Edad inválida"},
	{core.ErrInvalidBirthDate, "Fecha de nacimiento inválida"},
	{core.ErrInvalidAmount, "Monto inválido"},
	{core.ErrEmptyLink, "Ingrese el enlace del documento"},
	{core.ErrMissingMember, "Seleccione un socio"},
	{core.ErrUnknownDocType, "Tipo de documento desconocido"},
	{core.ErrFieldTooLong, "Uno de los campos es demasiado largo"},
	{core.ErrReceiptTooLong, "El número de recibo es demasiado largo (máx. 50 caracteres)"},
	{export.ErrNoRows, "No hay registros para exportar"},
	{export.ErrNoFields, "Seleccione al menos un campo para exportar"},
	{export.ErrUnknownField, "Campo de exportación desconocido"},
}

// classifyError returns the status code and user message for err.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "No tiene permisos para esta acción"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Registro no encontrado"
	case errors.Is(err, services.ErrDuplicate):
		return http.StatusConflict, "Ya existe un socio con ese DNI"
	case errors.Is(err, services.ErrRequestAlreadyPending):
		return http.StatusConflict, "El documento ya tiene una solicitud de eliminación pendiente"
	case errors.Is(err, services.ErrRequestNotPending):
		return http.StatusConflict, "La solicitud ya fue resuelta"
	case errors.Is(err, services.ErrRequestNotApproved):
		return http.StatusConflict, "La solicitud no está aprobada"
	}
	for _, v := range validationMessages {
		if errors.Is(err, v.err) {
			return http.StatusUnprocessableEntity, v.msg
		}
	}
	if errors.Is(err, services.ErrInvalid) {
		return http.StatusUnprocessableEntity, "Datos inválidos"
	}
	return http.StatusInternalServerError, "Error interno, intente nuevamente"
}
