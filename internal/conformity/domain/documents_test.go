package domain

import (
	"strings"
	"testing"
)

func TestValidateDocuments(t *testing.T) {
	toys := []Item{{ProductName: "Peluche", Category: CategoryToys, Quantity: 10}}
	food := []Item{{ProductName: "Riz", Category: CategoryFood, Quantity: 100}}
	invoice := Document{Type: DocumentInvoice, FileName: "facture.pdf"}
	datasheet := Document{Type: DocumentTechnicalDatasheet, FileName: "fiche.pdf"}

	tests := []struct {
		name       string
		items      []Item
		documents  Documents
		wantValid  bool
		wantErrors []string
	}{
		{
			name:       "toys without datasheet",
			items:      toys,
			documents:  Documents{DocumentInvoice: invoice},
			wantValid:  false,
			wantErrors: []string{"FICHE_TECHNIQUE"},
		},
		{
			name:      "toys with invoice and datasheet",
			items:     toys,
			documents: Documents{DocumentInvoice: invoice, DocumentTechnicalDatasheet: datasheet},
			wantValid: true,
		},
		{
			name:       "missing invoice",
			items:      food,
			documents:  Documents{},
			wantValid:  false,
			wantErrors: []string{"FACTURE"},
		},
		{
			name:      "non technical needs no datasheet",
			items:     food,
			documents: Documents{DocumentInvoice: invoice},
			wantValid: true,
		},
		{
			name:       "nothing attached for technical items",
			items:      append(append([]Item{}, food...), toys...),
			documents:  nil,
			wantValid:  false,
			wantErrors: []string{"FACTURE", "FICHE_TECHNIQUE"},
		},
		{
			name:       "unknown document type",
			items:      food,
			documents:  Documents{DocumentInvoice: invoice, "PHOTO": {Type: "PHOTO"}},
			wantValid:  false,
			wantErrors: []string{"PHOTO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateDocuments(tt.items, tt.documents)
			if result.Valid != tt.wantValid {
				t.Errorf("Expected valid=%v, got %v (%v)", tt.wantValid, result.Valid, result.Errors)
			}
			if len(result.Errors) != len(tt.wantErrors) {
				t.Fatalf("Expected %d errors, got %v", len(tt.wantErrors), result.Errors)
			}
			for i, fragment := range tt.wantErrors {
				if !strings.Contains(result.Errors[i], fragment) {
					t.Errorf("Expected error %d to mention %s, got %q", i, fragment, result.Errors[i])
				}
			}
		})
	}
}

// The datasheet message does not say which item required it.
func TestValidateDocumentsGenericMessage(t *testing.T) {
	items := []Item{{ProductName: "Lampe LED", Category: CategoryLighting, Quantity: 1}}
	result := ValidateDocuments(items, Documents{DocumentInvoice: {Type: DocumentInvoice}})

	if len(result.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %v", result.Errors)
	}
	if strings.Contains(result.Errors[0], "Lampe") {
		t.Errorf("Expected a generic message, got %q", result.Errors[0])
	}
}

func TestTechnicalCategories(t *testing.T) {
	technical := map[Category]bool{
		CategoryIndustrial: true,
		CategoryLighting:   true,
		CategoryToys:       true,
		CategoryVehicles:   true,
		CategoryIT:         true,
	}
	for _, c := range Categories {
		if c.Technical() != technical[c] {
			t.Errorf("Unexpected technical flag for %s", c)
		}
	}
}
