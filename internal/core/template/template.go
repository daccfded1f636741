package template

import "regexp"

// Template describes one document type by its pattern, keyword and
// structural cues. The recognizer scores each template independently and
// reports the best one above its threshold.
type Template struct {
	ID                string
	Name              string
	DocumentType      string
	Patterns          []*regexp.Regexp
	Keywords          []string
	StructuralMarkers []string
	Threshold         float64
}

// Registry declaration order is the tie-break order: when two templates
// score equally, the one registered first wins.
func DefaultRegistry() []Template {
	return []Template{
		{
			ID:           "invoice_de_standard",
			Name:         "Deutsche Rechnung (Standard)",
			DocumentType: "invoice",
			Patterns: compile(
				`(?i)rechnung`,
				`(?i)invoice`,
				`(?i)rechnungs[-\s]*nr`,
				`(?i)rg[-\s]*\d+`,
				`(?i)betrag`,
			),
			Keywords: []string{
				"rechnung", "invoice", "betrag", "summe", "total", "netto", "brutto",
				"umsatzsteuer", "mwst", "ust-id", "fälligkeitsdatum", "gesamtbetrag",
			},
			StructuralMarkers: []string{
				"rechnungsdatum", "leistungsdatum", "fälligkeitsdatum",
				"rechnungsempfänger", "zahlungsziel", "gesamtbetrag",
			},
			Threshold: 0.4,
		},
		{
			ID:           "employment_contract_de",
			Name:         "Arbeitsvertrag",
			DocumentType: "employment_contract",
			Patterns: compile(
				`(?i)arbeitsvertrag`,
				`(?i)employment\s*contract`,
				`(?i)arbeitsplatz`,
				`(?i)gehalt`,
			),
			Keywords: []string{
				"arbeitsvertrag", "arbeitnehmer", "arbeitgeber", "gehalt", "lohn",
				"arbeitszeit", "urlaub", "kündigung", "probezeit",
			},
			StructuralMarkers: []string{
				"arbeitsort", "arbeitszeit", "vergütung", "probezeit",
				"kündigungsfrist", "urlaubsanspruch",
			},
			Threshold: 0.55,
		},
		{
			ID:           "rental_contract_de",
			Name:         "Mietvertrag",
			DocumentType: "rental_contract",
			Patterns: compile(
				`(?i)mietvertrag`,
				`(?i)rental\s*contract`,
				`(?i)\bmiete\b`,
				`(?i)vermieter`,
			),
			Keywords: []string{
				"mietvertrag", "mieter", "vermieter", "miete", "kaution",
				"nebenkosten", "wohnung", "mietobjekt",
			},
			StructuralMarkers: []string{
				"mietobjekt", "mietbeginn", "mietpreis", "kaution",
				"nebenkosten", "kündigungsfrist",
			},
			Threshold: 0.55,
		},
		{
			ID:           "contract_de_standard",
			Name:         "Deutscher Vertrag (Standard)",
			DocumentType: "contract",
			Patterns: compile(
				`(?i)\bvertrag\b`,
				`(?i)\bcontract\b`,
				`(?i)vertragspartner`,
				`§\s*\d+`,
			),
			Keywords: []string{
				"vertrag", "contract", "vereinbarung", "vertragspartner",
				"laufzeit", "kündigung", "bedingungen", "pflichten", "rechte",
			},
			StructuralMarkers: []string{
				"vertragsgegenstand", "vertragslaufzeit", "kündigungsfrist",
				"§", "artikel", "absatz",
			},
			Threshold: 0.5,
		},
		{
			ID:           "bank_statement_de",
			Name:         "Deutscher Kontoauszug",
			DocumentType: "bank_statement",
			Patterns: compile(
				`(?i)kontoauszug`,
				`(?i)bank\s*statement`,
				`IBAN\s*:?\s*[A-Z]{2}\d{2}`,
				`(?i)umsatzübersicht`,
			),
			Keywords: []string{
				"kontoauszug", "konto", "saldo", "buchung", "überweisung",
				"lastschrift", "gutschrift", "iban", "bic",
			},
			StructuralMarkers: []string{
				"buchungstag", "wertstellung", "verwendungszweck", "saldo",
			},
			Threshold: 0.5,
		},
		{
			ID:           "tax_de",
			Name:         "Steuerdokument",
			DocumentType: "tax",
			Patterns: compile(
				`(?i)steuerbescheid`,
				`(?i)finanzamt`,
				`(?i)einkommensteuer`,
				`(?i)steuer[-\s]*nr`,
			),
			Keywords: []string{
				"steuer", "finanzamt", "steuerbescheid", "einkommensteuer",
				"steuererklärung", "festsetzung", "veranlagung",
			},
			StructuralMarkers: []string{
				"steuernummer", "veranlagungszeitraum", "festgesetzt",
			},
			Threshold: 0.5,
		},
		{
			ID:           "insurance_de",
			Name:         "Versicherungsdokument",
			DocumentType: "insurance",
			Patterns: compile(
				`(?i)versicherung`,
				`(?i)police`,
				`(?i)versicherungsschein`,
			),
			Keywords: []string{
				"versicherung", "police", "prämie", "beitrag", "schaden",
				"versicherungsnehmer", "leistung",
			},
			StructuralMarkers: []string{
				"versicherungsnummer", "versicherungsnehmer",
				"selbstbeteiligung", "deckungssumme",
			},
			Threshold: 0.5,
		},
		{
			ID:           "letter_de",
			Name:         "Geschäftsbrief",
			DocumentType: "letter",
			Patterns: compile(
				`(?i)sehr geehrte`,
				`(?i)mit freundlichen grüßen`,
				`(?i)betreff`,
			),
			Keywords: []string{
				"schreiben", "mitteilung", "betreff", "anlage", "bezug",
			},
			StructuralMarkers: []string{
				"ihr zeichen", "unser zeichen", "anlagen",
			},
			Threshold: 0.45,
		},
	}
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
