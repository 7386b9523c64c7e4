package core

import "strings"

const (
	DocPaymentReceipt  DocumentType = "payment_receipt"
	DocLocationPlans   DocumentType = "location_plans"
	DocDescriptiveMemo DocumentType = "descriptive_memo"
	DocOther           DocumentType = "other"
)

// DocumentType is the enumerated tag stored with every document.
type DocumentType string

// DocumentTypeInfo holds everything the UI and the deletion workflow need to
// know about a document type.
type DocumentTypeInfo struct {
	Label       string
	Sensitive   bool
	BadgeClass  string
	DeleteClass string
	Icon        string
	DeleteIcon  string
	DeleteTitle string
}

var documentTypes = map[DocumentType]DocumentTypeInfo{
	DocPaymentReceipt: {
		Label:       "Comprobante de Pago",
		BadgeClass:  "pill pill-success",
		DeleteClass: "pill-delete pill-delete-error",
		Icon:        "file-text",
		DeleteIcon:  "trash",
		DeleteTitle: "Eliminar Documento",
	},
	DocLocationPlans: {
		Label:       "Planos de ubicación",
		Sensitive:   true,
		BadgeClass:  "pill pill-accent",
		DeleteClass: "pill-delete pill-delete-accent",
		Icon:        "file-text",
		DeleteIcon:  "clock",
		DeleteTitle: "Solicitar Eliminación",
	},
	DocDescriptiveMemo: {
		Label:       "Memoria descriptiva",
		Sensitive:   true,
		BadgeClass:  "pill pill-accent",
		DeleteClass: "pill-delete pill-delete-accent",
		Icon:        "file-text",
		DeleteIcon:  "clock",
		DeleteTitle: "Solicitar Eliminación",
	},
	DocOther: {
		Label:       "Otro",
		BadgeClass:  "pill pill-primary",
		DeleteClass: "pill-delete pill-delete-error",
		Icon:        "file-text",
		DeleteIcon:  "trash",
		DeleteTitle: "Eliminar Documento",
	},
}

// DocumentTypes lists the known types in display order.
func DocumentTypes() []DocumentType {
	return []DocumentType{DocPaymentReceipt, DocLocationPlans, DocDescriptiveMemo, DocOther}
}

func (t DocumentType) IsValid() bool {
	_, ok := documentTypes[t]
	return ok
}

// Info returns the lookup entry for t; unknown tags fall back to DocOther.
func (t DocumentType) Info() DocumentTypeInfo {
	if info, ok := documentTypes[t]; ok {
		return info
	}
	return documentTypes[DocOther]
}

func (t DocumentType) Label() string {
	return t.Info().Label
}

// Sensitive reports whether deleting a document of this type needs admin approval.
func (t DocumentType) Sensitive() bool {
	info, ok := documentTypes[t]
	return ok && info.Sensitive
}

// ParseDocumentType accepts either a tag or a human label (case-insensitive).
func ParseDocumentType(s string) (DocumentType, error) {
	s = strings.TrimSpace(s)
	if t := DocumentType(strings.ToLower(s)); t.IsValid() {
		return t, nil
	}
	for t, info := range documentTypes {
		if strings.EqualFold(info.Label, s) {
			return t, nil
		}
	}
	return "", ErrUnknownDocType
}
