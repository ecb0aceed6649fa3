package domain

import "strings"

type DocumentType string

const (
	TypePANCard                  DocumentType = "PAN_CARD"
	TypeAadhaarCard              DocumentType = "AADHAAR_CARD"
	TypePassport                 DocumentType = "PASSPORT"
	TypeDrivingLicense           DocumentType = "DRIVING_LICENSE"
	TypeVoterID                  DocumentType = "VOTER_ID"
	TypeBankStatement            DocumentType = "BANK_STATEMENT"
	TypeSalarySlip               DocumentType = "SALARY_SLIP"
	TypeITR                      DocumentType = "ITR"
	TypeGSTReturn                DocumentType = "GST_RETURN"
	TypeDegreeCertificate        DocumentType = "DEGREE_CERTIFICATE"
	TypeMarkSheet                DocumentType = "MARK_SHEET"
	TypeSaleDeed                 DocumentType = "SALE_DEED"
	TypePropertyTaxReceipt       DocumentType = "PROPERTY_TAX_RECEIPT"
	TypeIncorporationCertificate DocumentType = "INCORPORATION_CERTIFICATE"
	TypeGSTRegistration          DocumentType = "GST_REGISTRATION"
	TypeElectricityBill          DocumentType = "ELECTRICITY_BILL"
	TypeWaterBill                DocumentType = "WATER_BILL"
	TypeOther                    DocumentType = "OTHER"
)

var DocumentTypes = []DocumentType{
	TypePANCard, TypeAadhaarCard, TypePassport, TypeDrivingLicense, TypeVoterID,
	TypeBankStatement, TypeSalarySlip, TypeITR, TypeGSTReturn, TypeDegreeCertificate,
	TypeMarkSheet, TypeSaleDeed, TypePropertyTaxReceipt, TypeIncorporationCertificate,
	TypeGSTRegistration, TypeElectricityBill, TypeWaterBill, TypeOther,
}

// Names the AI service used before the vocabulary was unified.
var documentTypeAliases = map[string]DocumentType{
	"PAN":           TypePANCard,
	"AADHAAR":       TypeAadhaarCard,
	"PROPERTY_DEED": TypeSaleDeed,
}

type DocumentCategory string

const (
	CategoryIdentity    DocumentCategory = "IDENTITY"
	CategoryFinancial   DocumentCategory = "FINANCIAL"
	CategoryEducational DocumentCategory = "EDUCATIONAL"
	CategoryProperty    DocumentCategory = "PROPERTY"
	CategoryBusiness    DocumentCategory = "BUSINESS"
	CategoryUtility     DocumentCategory = "UTILITY"
	CategoryOther       DocumentCategory = "OTHER"
)

var DocumentCategories = []DocumentCategory{
	CategoryIdentity, CategoryFinancial, CategoryEducational, CategoryProperty,
	CategoryBusiness, CategoryUtility, CategoryOther,
}

var documentCategoryAliases = map[string]DocumentCategory{
	"ID": CategoryIdentity,
}

func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (c DocumentCategory) Valid() bool {
	for _, known := range DocumentCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseDocumentType maps a raw classifier label onto the closed vocabulary.
// Empty and unrecognised labels become OTHER.
func ParseDocumentType(raw string) DocumentType {
	label := normalizeLabel(raw)
	if t := DocumentType(label); t.Valid() {
		return t
	}
	if t, ok := documentTypeAliases[label]; ok {
		return t
	}
	return TypeOther
}

func ParseDocumentCategory(raw string) DocumentCategory {
	label := normalizeLabel(raw)
	if c := DocumentCategory(label); c.Valid() {
		return c
	}
	if c, ok := documentCategoryAliases[label]; ok {
		return c
	}
	return CategoryOther
}

func normalizeLabel(raw string) string {
	label := strings.ToUpper(strings.TrimSpace(raw))
	label = strings.NewReplacer(" ", "_", "-", "_").Replace(label)
	return label
}
