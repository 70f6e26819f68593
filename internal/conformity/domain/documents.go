package domain

import (
	"fmt"
	"sort"
)

// Category is the merchandise category of an item
type Category string

const (
	CategoryIndustrial   Category = "Produits industriels et techniques"
	CategoryLighting     Category = "Matériel d'éclairage"
	CategoryToys         Category = "Jouets et articles pour enfants"
	CategoryVehicles     Category = "Véhicules et pièces détachées"
	CategoryIT           Category = "Équipements informatiques et télécommunications"
	CategoryFood         Category = "Produits alimentaires"
	CategoryCosmetics    Category = "Produits cosmétiques"
	CategoryTextiles     Category = "Textiles et habillement"
	CategoryConstruction Category = "Matériaux de construction"
	CategoryOther        Category = "Autres"
)

// Categories lists every accepted category
var Categories = []Category{
	CategoryIndustrial, CategoryLighting, CategoryToys, CategoryVehicles, CategoryIT,
	CategoryFood, CategoryCosmetics, CategoryTextiles, CategoryConstruction, CategoryOther,
}

// technicalCategories require a technical datasheet
var technicalCategories = map[Category]bool{
	CategoryIndustrial: true,
	CategoryLighting:   true,
	CategoryToys:       true,
	CategoryVehicles:   true,
	CategoryIT:         true,
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Technical reports whether items of this category need a technical datasheet
func (c Category) Technical() bool {
	return technicalCategories[c]
}

// DocumentType identifies a supporting document attached to a case
type DocumentType string

const (
	DocumentInvoice            DocumentType = "FACTURE"
	DocumentTechnicalDatasheet DocumentType = "FICHE_TECHNIQUE"
	DocumentCertificateOrigin  DocumentType = "CERTIFICAT_ORIGINE"
	DocumentPackingList        DocumentType = "LISTE_COLISAGE"
	DocumentOther              DocumentType = "AUTRE"
)

// Valid reports whether t is a known document type
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentInvoice, DocumentTechnicalDatasheet, DocumentCertificateOrigin,
		DocumentPackingList, DocumentOther:
		return true
	}
	return false
}

// Document is a reference to an uploaded supporting document
type Document struct {
	Type     DocumentType `json:"type"`
	FileName string       `json:"file_name"`
	// Reference points at the stored file; the content itself is not kept here
	Reference string `json:"reference,omitempty"`
}

// Documents maps document type to the attached document
type Documents map[DocumentType]Document

// Has reports whether a document of type t is attached
func (d Documents) Has(t DocumentType) bool {
	_, ok := d[t]
	return ok
}

const (
	errMissingInvoice   = "commercial invoice (FACTURE) is required"
	errMissingDatasheet = "technical datasheet (FICHE_TECHNIQUE) is required for technical product categories"
)

// ValidationResult reports missing or invalid supporting documents
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateDocuments checks the documents required by the items' categories.
// Failures are reported in the result, never as an error value.
func ValidateDocuments(items []Item, documents Documents) ValidationResult {
	errs := []string{}

	if !documents.Has(DocumentInvoice) {
		errs = append(errs, errMissingInvoice)
	}

	needsDatasheet := false
	for _, item := range items {
		if item.Category.Technical() {
			needsDatasheet = true
			break
		}
	}
	if needsDatasheet && !documents.Has(DocumentTechnicalDatasheet) {
		errs = append(errs, errMissingDatasheet)
	}

	var unknown []string
	for t := range documents {
		if !t.Valid() {
			unknown = append(unknown, string(t))
		}
	}
	sort.Strings(unknown)
	for _, t := range unknown {
		errs = append(errs, fmt.Sprintf("unknown document type %q", t))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
