package registry

import (
	"time"

	"github.com/joelkehle/casewatch/internal/casestore"
)

// DemoRecord returns a canned filing used when the registry is rate limiting
// us and an import has to return something reviewable. The data mirrors a
// real expired filing.
func DemoRecord() *casestore.Case {
	return &casestore.Case{
		ID:          "uspto_demo",
		Title:       "HETEROJUNCTION BIPOLAR TRANSISTOR",
		Status:      "Patented Case",
		StatusCode:  150,
		StatusDate:  "2016-05-18",
		Description: "Patent Expired Due to NonPayment of Maintenance Fees Under 37 CFR 1.362",
		FilingDate:  "2012-12-19",
		Inventors:   []string{"Pascal Chevalier"},
		Attorneys: []casestore.Attorney{{
			Name:               "DANIEL D O'BRIEN",
			RegistrationNumber: "65545",
			Contacts:           []casestore.Contact{{Kind: "TEL", Value: "206-622-4900"}},
		}},
		MailingAddresses: []casestore.Address{{
			Line: "Seed IP Law Group LLP/ST (EP ORIGINATING),701 FIFTH AVENUE, SUITE 5400",
			City: "SEATTLE",
		}},
		Documents: []casestore.Document{{
			URL:    "https://bulkdata.uspto.gov/data/patent/application/redbook/fulltext/2024/ipa240104.zip",
			Source: "uspto",
		}},
		References:  []casestore.Reference{},
		CreatedDate: time.Now().UTC(),
	}
}
