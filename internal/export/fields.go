// Package export renders roster selections as CSV or XLSX files.
package export

import (
	"errors"
	"fmt"
	"strconv"

	"socios/internal/core"
)

var (
	ErrNoRows       = errors.New("no rows to export")
	ErrNoFields     = errors.New("no fields selected")
	ErrUnknownField = errors.New("unknown export field")
)

// Field is one selectable export column.
type Field struct {
	Key     string
	Label   string
	Default bool
	value   func(core.RosterEntry) string
}

// Fields lists every exportable column in output order.
var Fields = []Field{
	{"dni", "DNI", true, func(e core.RosterEntry) string { return e.DNI }},
	{"nombres", "Nombres", true, func(e core.RosterEntry) string { return e.FirstNames }},
	{"apellidoPaterno", "Apellido Paterno", true, func(e core.RosterEntry) string { return e.PaternalSurname }},
	{"apellidoMaterno", "Apellido Materno", true, func(e core.RosterEntry) string { return e.MaternalSurname }},
	{"celular", "Celular", true, func(e core.RosterEntry) string { return e.Phone }},
	{"localidad", "Localidad", true, func(e core.RosterEntry) string { return e.Locality }},
	{"mz", "Manzana (Mz)", true, func(e core.RosterEntry) string { return e.Block }},
	{"lote", "Lote", true, func(e core.RosterEntry) string { return e.Lot }},
	{"isActive", "Estado (Activo/Inactivo)", true, func(e core.RosterEntry) string { return e.Status().ExportLabel() }},
	{"receiptNumber", "N° Recibo de Pago", true, func(e core.RosterEntry) string { return e.ReceiptNumber }},
	{"netIncomeAmount", "Monto Neto de Ingresos", true, func(e core.RosterEntry) string { return e.NetIncome.Decimal() }},
	{"is_lote_medido", "Lote Medido", true, func(e core.RosterEntry) string { return core.YesNo(e.IsLotMeasured) }},
	{"fechaNacimiento", "Fecha de Nacimiento", false, func(e core.RosterEntry) string { return e.BirthDate }},
	{"edad", "Edad", false, func(e core.RosterEntry) string { return ageString(e.Age) }},
	{"situacionEconomica", "Situación Económica", false, func(e core.RosterEntry) string { return e.EconomicSituation }},
	{"direccionDNI", "Dirección DNI", false, func(e core.RosterEntry) string { return e.DNIAddress }},
	{"regionDNI", "Región DNI", false, func(e core.RosterEntry) string { return e.DNIRegion }},
	{"provinciaDNI", "Provincia DNI", false, func(e core.RosterEntry) string { return e.DNIProvince }},
	{"distritoDNI", "Distrito DNI", false, func(e core.RosterEntry) string { return e.DNIDistrict }},
	{"direccionVivienda", "Dirección Vivienda", false, func(e core.RosterEntry) string { return e.HomeAddress }},
	{"regionVivienda", "Región Vivienda", false, func(e core.RosterEntry) string { return e.HomeRegion }},
	{"provinciaVivienda", "Provincia Vivienda", false, func(e core.RosterEntry) string { return e.HomeProvince }},
	{"distritoVivienda", "Distrito Vivienda", false, func(e core.RosterEntry) string { return e.HomeDistrict }},
}

var fieldsByKey = func() map[string]Field {
	m := make(map[string]Field, len(Fields))
	for _, f := range Fields {
		m[f.Key] = f
	}
	return m
}()

// DefaultKeys returns the keys checked by default in the export dialog.
func DefaultKeys() []string {
	var keys []string
	for _, f := range Fields {
		if f.Default {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Resolve maps keys to fields, keeping the caller's order.
func Resolve(keys []string) ([]Field, error) {
	if len(keys) == 0 {
		return nil, ErrNoFields
	}
	out := make([]Field, 0, len(keys))
	for _, k := range keys {
		f, ok := fieldsByKey[k]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, k)
		}
		out = append(out, f)
	}
	return out, nil
}

// Value renders the field for one entry.
func (f Field) Value(e core.RosterEntry) string {
	return f.value(e)
}

func ageString(age int) string {
	if age <= 0 {
		return ""
	}
	return strconv.Itoa(age)
}
