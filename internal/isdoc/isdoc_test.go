package isdoc_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdolezal/isdocsync/internal/isdoc"
)

const sampleInvoice = `<?xml version="1.0" encoding="utf-8"?>
<Invoice xmlns="http://isdoc.cz/namespace/2013" version="6.0.1">
  <DocumentType>1</DocumentType>
  <ID>2024-0042</ID>
  <IssueDate>2024-03-15</IssueDate>
  <Note>Dodávka služeb za březen</Note>
  <LocalCurrencyCode>CZK</LocalCurrencyCode>
  <AccountingSupplierParty>
    <Party>
      <PartyIdentification><ID>12345678</ID></PartyIdentification>
      <PartyName><Name>Dodavatel s.r.o.</Name></PartyName>
      <PostalAddress>
        <StreetName>Dlouhá</StreetName>
        <BuildingNumber>12</BuildingNumber>
        <CityName>Praha</CityName>
        <PostalZone>11000</PostalZone>
        <Country><IdentificationCode>CZ</IdentificationCode><Name>Česká republika</Name></Country>
      </PostalAddress>
      <PartyTaxScheme><CompanyID>CZ12345678</CompanyID><TaxScheme>VAT</TaxScheme></PartyTaxScheme>
    </Party>
  </AccountingSupplierParty>
  <AccountingCustomerParty>
    <Party>
      <PartyIdentification><ID>87654321</ID></PartyIdentification>
      <PartyName><Name>Odběratel a.s.</Name></PartyName>
      <PostalAddress>
        <StreetName>Krátká</StreetName>
        <BuildingNumber>3</BuildingNumber>
        <CityName>Brno</CityName>
        <PostalZone>60200</PostalZone>
        <Country><IdentificationCode>CZ</IdentificationCode></Country>
      </PostalAddress>
      <PartyTaxScheme><CompanyID>CZ87654321</CompanyID><TaxScheme>VAT</TaxScheme></PartyTaxScheme>
    </Party>
  </AccountingCustomerParty>
  <InvoiceLines>
    <InvoiceLine>
      <ID>1</ID>
      <InvoicedQuantity unitCode="ks">2</InvoicedQuantity>
      <LineExtensionAmount>2000.00</LineExtensionAmount>
      <LineExtensionAmountTaxInclusive>2420.00</LineExtensionAmountTaxInclusive>
      <LineExtensionTaxAmount>420.00</LineExtensionTaxAmount>
      <UnitPrice>1000.00</UnitPrice>
      <UnitPriceTaxInclusive>1210.00</UnitPriceTaxInclusive>
      <ClassifiedTaxCategory><Percent>21</Percent></ClassifiedTaxCategory>
      <Item><Description>Konzultace</Description></Item>
    </InvoiceLine>
  </InvoiceLines>
  <TaxTotal>
    <TaxSubTotal>
      <TaxableAmount>2000.00</TaxableAmount>
      <TaxAmount>420.00</TaxAmount>
      <TaxCategory><Percent>21</Percent></TaxCategory>
    </TaxSubTotal>
    <TaxAmount>420.00</TaxAmount>
  </TaxTotal>
  <LegalMonetaryTotal>
    <TaxExclusiveAmount>2000.00</TaxExclusiveAmount>
    <TaxInclusiveAmount>2420.00</TaxInclusiveAmount>
    <PayableAmount>2420.00</PayableAmount>
  </LegalMonetaryTotal>
  <PaymentMeans>
    <Payment>
      <Details>
        <PaymentDueDate>2024-03-29</PaymentDueDate>
        <ID>123456789</ID>
        <BankCode>0100</BankCode>
        <IBAN>CZ6501000000000123456789</IBAN>
        <BIC>KOMBCZPP</BIC>
        <VariableSymbol>20240042</VariableSymbol>
        <ConstantSymbol>0308</ConstantSymbol>
      </Details>
    </Payment>
  </PaymentMeans>
</Invoice>`

func TestParse(t *testing.T) {
	doc, err := isdoc.Parse(strings.NewReader(sampleInvoice))
	require.NoError(t, err)

	assert.Equal(t, "2024-0042", doc.Number)
	assert.Equal(t, "invoice", doc.DocumentType)
	require.NotNil(t, doc.IssuedOn)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *doc.IssuedOn)
	require.NotNil(t, doc.DueOn)
	assert.Equal(t, time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), *doc.DueOn)

	assert.Equal(t, "CZK", doc.Currency)
	require.True(t, doc.Subtotal.Valid)
	assert.Equal(t, "2000", doc.Subtotal.Decimal.String())
	require.True(t, doc.Total.Valid)
	assert.Equal(t, "2420", doc.Total.Decimal.String())

	assert.Equal(t, "Dodavatel s.r.o.", doc.Supplier.Name)
	assert.Equal(t, "Dlouhá 12", doc.Supplier.Street)
	assert.Equal(t, "CZ12345678", doc.Supplier.VatNo)
	assert.Equal(t, "12345678", doc.Supplier.RegistrationNo)
	assert.Equal(t, "Česká republika", doc.Supplier.Country)

	assert.Equal(t, "Odběratel a.s.", doc.Customer.Name)
	assert.Equal(t, "CZ87654321", doc.Customer.VatNo)
	assert.Equal(t, "CZ", doc.Customer.Country)

	assert.Equal(t, "20240042", doc.VariableSymbol)
	assert.Equal(t, "0308", doc.ConstantSymbol)
	assert.Equal(t, "123456789/0100", doc.BankAccount)
	assert.Equal(t, "CZ6501000000000123456789", doc.IBAN)
	assert.Equal(t, "KOMBCZPP", doc.SwiftBIC)

	require.Len(t, doc.Lines, 1)
	line := doc.Lines[0]
	assert.Equal(t, 1, line.Order)
	assert.Equal(t, "Konzultace", line.Name)
	assert.Equal(t, "2", line.Quantity.String())
	assert.Equal(t, "ks", line.UnitName)
	assert.Equal(t, "21", line.VatRate.String())
	assert.Equal(t, "2420", line.TotalPriceWithVat.String())

	require.Len(t, doc.VatRates, 1)
	assert.Equal(t, "21", doc.VatRates[0].Rate.String())
	assert.Equal(t, "420", doc.VatRates[0].Vat.String())

	assert.Empty(t, doc.Validate())
}

func TestParse_Windows1250Declaration(t *testing.T) {
	// "Dodávka" in Windows-1250: á = 0xE1.
	body := `<?xml version="1.0" encoding="windows-1250"?>` +
		`<Invoice xmlns="http://isdoc.cz/namespace/2013">` +
		`<ID>1</ID><Note>Dod` + string([]byte{0xE1}) + `vka</Note></Invoice>`

	doc, err := isdoc.Parse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "Dodávka", doc.Note)
}

func TestParse_NotXML(t *testing.T) {
	_, err := isdoc.Parse(strings.NewReader("definitely not xml"))
	assert.Error(t, err)
}

func TestValidate_MissingFields(t *testing.T) {
	body := `<?xml version="1.0" encoding="utf-8"?>` +
		`<Invoice xmlns="http://isdoc.cz/namespace/2013"><DocumentType>1</DocumentType></Invoice>`

	doc, err := isdoc.Parse(strings.NewReader(body))
	require.NoError(t, err)

	errs := doc.Validate()
	assert.Contains(t, errs, "missing invoice number (ID)")
	assert.Contains(t, errs, "missing or invalid issue date")
	assert.Contains(t, errs, "missing supplier name")
	assert.Contains(t, errs, "missing customer name")
	assert.Contains(t, errs, "missing total amount")
}

func TestParse_DocumentTypeCodes(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"1", "invoice"},
		{"2", "credit_note"},
		{"4", "proforma"},
		{"9", ""},
	}

	for _, tt := range tests {
		body := `<Invoice xmlns="http://isdoc.cz/namespace/2013"><DocumentType>` + tt.code + `</DocumentType></Invoice>`

		doc, err := isdoc.Parse(strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, tt.want, doc.DocumentType, "code %s", tt.code)
	}
}
