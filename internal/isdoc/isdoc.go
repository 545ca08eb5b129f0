// Package isdoc reads ISDOC invoice documents, the Czech national XML
// format for electronic invoicing. Only the subset of the schema needed
// for staging an upload is extracted; the rest of the document travels
// along as the raw parse result.
package isdoc

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdolezal/isdocsync/internal/invoice"
)

// Document is the extracted content of one ISDOC invoice.
type Document struct {
	Number       string
	DocumentType string
	IssuedOn     *time.Time
	DueOn        *time.Time

	Subtotal     decimal.NullDecimal
	Total        decimal.NullDecimal
	Currency     string
	ExchangeRate decimal.NullDecimal

	Supplier invoice.Party
	Customer invoice.Party

	VariableSymbol string
	ConstantSymbol string
	SpecificSymbol string
	BankAccount    string
	IBAN           string
	SwiftBIC       string

	Note string

	Lines    []Line
	VatRates []VatRate
}

type Line struct {
	Order                int
	Name                 string
	Quantity             decimal.Decimal
	UnitName             string
	UnitPrice            decimal.Decimal
	VatRate              decimal.Decimal
	UnitPriceWithoutVat  decimal.Decimal
	UnitPriceWithVat     decimal.Decimal
	TotalPriceWithoutVat decimal.Decimal
	TotalVat             decimal.Decimal
	TotalPriceWithVat    decimal.Decimal
}

// VatRate is one row of the document's tax recapitulation.
type VatRate struct {
	Rate decimal.Decimal `json:"rate"`
	Base decimal.Decimal `json:"base"`
	Vat  decimal.Decimal `json:"vat"`
}

// documentTypes maps the ISDOC numeric DocumentType codes.
var documentTypes = map[string]string{
	"1": "invoice",
	"2": "credit_note",
	"3": "debit_note",
	"4": "proforma",
	"5": "advance_invoice",
	"6": "advance_credit_note",
}

type xmlInvoice struct {
	XMLName           xml.Name        `xml:"Invoice"`
	DocumentType      string          `xml:"DocumentType"`
	ID                string          `xml:"ID"`
	IssueDate         string          `xml:"IssueDate"`
	Note              string          `xml:"Note"`
	LocalCurrencyCode string          `xml:"LocalCurrencyCode"`
	CurrRate          string          `xml:"CurrRate"`
	Supplier          xmlPartyHolder  `xml:"AccountingSupplierParty"`
	Customer          xmlPartyHolder  `xml:"AccountingCustomerParty"`
	Lines             xmlInvoiceLines `xml:"InvoiceLines"`
	TaxTotal          xmlTaxTotal     `xml:"TaxTotal"`
	MonetaryTotal     xmlMonetary     `xml:"LegalMonetaryTotal"`
	PaymentMeans      xmlPaymentMeans `xml:"PaymentMeans"`
}

type xmlPartyHolder struct {
	Party xmlParty `xml:"Party"`
}

type xmlParty struct {
	Identification struct {
		ID string `xml:"ID"`
	} `xml:"PartyIdentification"`
	Name struct {
		Name string `xml:"Name"`
	} `xml:"PartyName"`
	Address struct {
		StreetName     string `xml:"StreetName"`
		BuildingNumber string `xml:"BuildingNumber"`
		CityName       string `xml:"CityName"`
		PostalZone     string `xml:"PostalZone"`
		Country        struct {
			IdentificationCode string `xml:"IdentificationCode"`
			Name               string `xml:"Name"`
		} `xml:"Country"`
	} `xml:"PostalAddress"`
	TaxScheme struct {
		CompanyID string `xml:"CompanyID"`
	} `xml:"PartyTaxScheme"`
}

type xmlInvoiceLines struct {
	Lines []xmlLine `xml:"InvoiceLine"`
}

type xmlLine struct {
	ID       string `xml:"ID"`
	Quantity struct {
		Value    string `xml:",chardata"`
		UnitCode string `xml:"unitCode,attr"`
	} `xml:"InvoicedQuantity"`
	LineExtensionAmount             string `xml:"LineExtensionAmount"`
	LineExtensionAmountTaxInclusive string `xml:"LineExtensionAmountTaxInclusive"`
	LineExtensionTaxAmount          string `xml:"LineExtensionTaxAmount"`
	UnitPrice                       string `xml:"UnitPrice"`
	UnitPriceTaxInclusive           string `xml:"UnitPriceTaxInclusive"`
	TaxCategory                     struct {
		Percent string `xml:"Percent"`
	} `xml:"ClassifiedTaxCategory"`
	Item struct {
		Description string `xml:"Description"`
	} `xml:"Item"`
}

type xmlTaxTotal struct {
	SubTotals []struct {
		TaxableAmount string `xml:"TaxableAmount"`
		TaxAmount     string `xml:"TaxAmount"`
		TaxCategory   struct {
			Percent string `xml:"Percent"`
		} `xml:"TaxCategory"`
	} `xml:"TaxSubTotal"`
}

type xmlMonetary struct {
	TaxExclusiveAmount string `xml:"TaxExclusiveAmount"`
	TaxInclusiveAmount string `xml:"TaxInclusiveAmount"`
	PayableAmount      string `xml:"PayableAmount"`
}

type xmlPaymentMeans struct {
	Payments []struct {
		Details struct {
			PaymentDueDate string `xml:"PaymentDueDate"`
			ID             string `xml:"ID"`
			BankCode       string `xml:"BankCode"`
			IBAN           string `xml:"IBAN"`
			BIC            string `xml:"BIC"`
			VariableSymbol string `xml:"VariableSymbol"`
			ConstantSymbol string `xml:"ConstantSymbol"`
			SpecificSymbol string `xml:"SpecificSymbol"`
		} `xml:"Details"`
	} `xml:"Payment"`
}

// Parse decodes one ISDOC document. A non-nil error means the input could
// not be read as XML at all; content-level problems (missing fields) are
// reported by Validate instead.
func Parse(r io.Reader) (*Document, error) {
	decoded, err := newUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	dec := xml.NewDecoder(decoded)
	// The stream is already UTF-8; the declaration may still name the
	// original charset, so accept any label as-is.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var raw xmlInvoice
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding isdoc xml: %w", err)
	}

	doc := &Document{
		Number:       strings.TrimSpace(raw.ID),
		DocumentType: documentTypes[strings.TrimSpace(raw.DocumentType)],
		IssuedOn:     parseDate(raw.IssueDate),
		Currency:     strings.TrimSpace(raw.LocalCurrencyCode),
		ExchangeRate: parseNullDecimal(raw.CurrRate),
		Subtotal:     parseNullDecimal(raw.MonetaryTotal.TaxExclusiveAmount),
		Total:        parseNullDecimal(raw.MonetaryTotal.TaxInclusiveAmount),
		Note:         strings.TrimSpace(raw.Note),
		Supplier:     mapParty(raw.Supplier.Party),
		Customer:     mapParty(raw.Customer.Party),
	}

	if !doc.Total.Valid {
		doc.Total = parseNullDecimal(raw.MonetaryTotal.PayableAmount)
	}

	if len(raw.PaymentMeans.Payments) > 0 {
		details := raw.PaymentMeans.Payments[0].Details
		doc.DueOn = parseDate(details.PaymentDueDate)
		doc.VariableSymbol = details.VariableSymbol
		doc.ConstantSymbol = details.ConstantSymbol
		doc.SpecificSymbol = details.SpecificSymbol
		doc.IBAN = details.IBAN
		doc.SwiftBIC = details.BIC

		if details.ID != "" {
			doc.BankAccount = details.ID
			if details.BankCode != "" {
				doc.BankAccount += "/" + details.BankCode
			}
		}
	}

	for i, line := range raw.Lines.Lines {
		doc.Lines = append(doc.Lines, Line{
			Order:                i + 1,
			Name:                 strings.TrimSpace(line.Item.Description),
			Quantity:             parseDecimal(line.Quantity.Value),
			UnitName:             line.Quantity.UnitCode,
			UnitPrice:            parseDecimal(line.UnitPrice),
			VatRate:              parseDecimal(line.TaxCategory.Percent),
			UnitPriceWithoutVat:  parseDecimal(line.UnitPrice),
			UnitPriceWithVat:     parseDecimal(line.UnitPriceTaxInclusive),
			TotalPriceWithoutVat: parseDecimal(line.LineExtensionAmount),
			TotalVat:             parseDecimal(line.LineExtensionTaxAmount),
			TotalPriceWithVat:    parseDecimal(line.LineExtensionAmountTaxInclusive),
		})
	}

	for _, sub := range raw.TaxTotal.SubTotals {
		doc.VatRates = append(doc.VatRates, VatRate{
			Rate: parseDecimal(sub.TaxCategory.Percent),
			Base: parseDecimal(sub.TaxableAmount),
			Vat:  parseDecimal(sub.TaxAmount),
		})
	}

	return doc, nil
}

// Validate reports content-level problems that block importing the
// document. An empty result means the document is importable.
func (d *Document) Validate() []string {
	var errs []string

	if d.Number == "" {
		errs = append(errs, "missing invoice number (ID)")
	}

	if d.IssuedOn == nil {
		errs = append(errs, "missing or invalid issue date")
	}

	if d.Supplier.Name == "" {
		errs = append(errs, "missing supplier name")
	}

	if d.Customer.Name == "" {
		errs = append(errs, "missing customer name")
	}

	if !d.Total.Valid {
		errs = append(errs, "missing total amount")
	}

	return errs
}

func mapParty(p xmlParty) invoice.Party {
	street := strings.TrimSpace(p.Address.StreetName)
	if n := strings.TrimSpace(p.Address.BuildingNumber); n != "" {
		if street != "" {
			street += " "
		}
		street += n
	}

	country := strings.TrimSpace(p.Address.Country.Name)
	if country == "" {
		country = strings.TrimSpace(p.Address.Country.IdentificationCode)
	}

	return invoice.Party{
		Name:           strings.TrimSpace(p.Name.Name),
		Street:         street,
		City:           strings.TrimSpace(p.Address.CityName),
		Zip:            strings.TrimSpace(p.Address.PostalZone),
		Country:        country,
		RegistrationNo: strings.TrimSpace(p.Identification.ID),
		VatNo:          strings.TrimSpace(p.TaxScheme.CompanyID),
	}
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}

	return &t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}

	return d
}

func parseNullDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}

	return decimal.NullDecimal{Decimal: d, Valid: true}
}
