package registry

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/casewatch/internal/casestore"
)

// Normalize flattens one raw file-wrapper entry into a case. The payload is
// treated as hostile: every key may be missing, null, or the wrong shape,
// and normalization still produces a usable case.
//
// Rules carried over from the registry's data model:
//   - the case ID is "uspto_" + applicationNumberText, or a random suffix
//     when the number is absent
//   - only attorneys whose activeIndicator is ACTIVE are kept, and only
//     when they have a name, a registration number, and at least one
//     telecommunication contact
//   - mailing addresses are coalesced from name and address lines into one
//     comma-joined line, then deduplicated across all sources (inventor
//     correspondence, top-level correspondence, attorney addresses)
func Normalize(raw map[string]any) *casestore.Case {
	c := &casestore.Case{
		ID:          caseID(raw),
		CreatedDate: time.Now().UTC(),
	}

	if meta, ok := raw["applicationMetaData"].(map[string]any); ok {
		c.Title = strVal(meta["inventionTitle"])
		c.FilingDate = strVal(meta["filingDate"])
		c.StatusCode = intVal(meta["applicationStatusCode"])
		c.StatusDate = strVal(meta["applicationStatusDate"])
		c.Status = strVal(meta["applicationStatusDescriptionText"])
		c.Description = c.Status

		for _, inventor := range mapSlice(meta["inventorBag"]) {
			if name := strings.TrimSpace(strVal(inventor["inventorNameText"])); name != "" {
				c.Inventors = appendUnique(c.Inventors, name)
			}
			for _, addr := range mapSlice(inventor["correspondenceAddressBag"]) {
				c.MailingAddresses = appendAddress(c.MailingAddresses, flattenAddress(addr))
			}
		}
	}

	for _, addr := range mapSlice(raw["correspondenceAddressBag"]) {
		c.MailingAddresses = appendAddress(c.MailingAddresses, flattenAddress(addr))
	}

	if attorney, ok := raw["recordAttorney"].(map[string]any); ok {
		for _, person := range mapSlice(attorney["powerOfAttorneyBag"]) {
			active := strVal(person["activeIndicator"])
			if active != "ACTIVE" && active != "active" {
				continue
			}
			for _, addr := range mapSlice(person["attorneyAddressBag"]) {
				c.MailingAddresses = appendAddress(c.MailingAddresses, flattenAddress(addr))
			}
			name := strings.TrimSpace(strVal(person["firstName"]) + " " + strVal(person["lastName"]))
			regNum := strVal(person["registrationNumber"])
			var contacts []casestore.Contact
			for _, comm := range mapSlice(person["telecommunicationAddressBag"]) {
				number := strings.TrimSpace(strVal(comm["telecommunicationNumber"]))
				if number == "" {
					continue
				}
				contacts = append(contacts, casestore.Contact{
					Kind:  strVal(comm["telecomTypeCode"]),
					Value: number,
				})
			}
			if name == "" || regNum == "" || len(contacts) == 0 {
				continue
			}
			c.Attorneys = append(c.Attorneys, casestore.Attorney{
				Name:               name,
				RegistrationNumber: regNum,
				Contacts:           contacts,
			})
		}
	}

	for _, event := range mapSlice(raw["eventDataBag"]) {
		desc := strings.TrimSpace(strVal(event["eventDescriptionText"]))
		if desc == "" {
			continue
		}
		c.Events = append(c.Events, casestore.Event{
			Code:        strVal(event["eventCode"]),
			Description: desc,
			Date:        strVal(event["eventDate"]),
		})
	}

	c.References = []casestore.Reference{}
	return c
}

func caseID(raw map[string]any) string {
	if n := strings.TrimSpace(strVal(raw["applicationNumberText"])); n != "" {
		return "uspto_" + n
	}
	return "uspto_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// flattenAddress joins the name and street lines into one comma-separated
// line, matching how correspondence addresses are presented downstream.
func flattenAddress(addr map[string]any) casestore.Address {
	parts := []string{}
	for _, key := range []string{"nameLineOneText", "addressLineOneText", "addressLineTwoText"} {
		if v := strings.TrimSpace(strVal(addr[key])); v != "" {
			parts = append(parts, v)
		}
	}
	return casestore.Address{
		Line: strings.Join(parts, ","),
		City: strings.TrimSpace(strVal(addr["cityName"])),
	}
}

func appendAddress(addrs []casestore.Address, a casestore.Address) []casestore.Address {
	if a.Line == "" && a.City == "" {
		return addrs
	}
	for _, existing := range addrs {
		if existing == a {
			return addrs
		}
	}
	return append(addrs, a)
}

func appendUnique(items []string, v string) []string {
	for _, item := range items {
		if item == v {
			return items
		}
	}
	return append(items, v)
}
