package finance

import (
	"encoding/xml"
	"strconv"
	"strings"

	"gfinance/internal/models"
)

const (
	atomNamespace    = "http://www.w3.org/2005/Atom"
	financeNamespace = "http://schemas.google.com/finance/2007"
	gdataNamespace   = "http://schemas.google.com/g/2005"

	// timestampLayout is the date format of gf:transactionData, always UTC.
	timestampLayout = "2006-01-02T15:04:05"
)

type portfolioEntryXML struct {
	XMLName xml.Name         `xml:"entry"`
	Xmlns   string           `xml:"xmlns,attr"`
	XmlnsGF string           `xml:"xmlns:gf,attr"`
	Title   string           `xml:"title"`
	Data    portfolioDataXML `xml:"gf:portfolioData"`
}

type portfolioDataXML struct {
	CurrencyCode string `xml:"currencyCode,attr"`
}

type transactionEntryXML struct {
	XMLName xml.Name           `xml:"entry"`
	Xmlns   string             `xml:"xmlns,attr"`
	XmlnsGF string             `xml:"xmlns:gf,attr"`
	XmlnsGD string             `xml:"xmlns:gd,attr"`
	Data    transactionDataXML `xml:"gf:transactionData"`
}

type transactionDataXML struct {
	Date       string      `xml:"date,attr"`
	Shares     string      `xml:"shares,attr"`
	Type       string      `xml:"type,attr"`
	Commission moneyHolder `xml:"gf:commission"`
	Price      moneyHolder `xml:"gf:price"`
}

type moneyHolder struct {
	Money moneyXML `xml:"gd:money"`
}

type moneyXML struct {
	Amount       string `xml:"amount,attr"`
	CurrencyCode string `xml:"currencyCode,attr"`
}

// EncodePortfolio builds the Atom entry declaring a new portfolio.
func EncodePortfolio(title, currencyCode string) ([]byte, error) {
	return xml.Marshal(portfolioEntryXML{
		Xmlns:   atomNamespace,
		XmlnsGF: financeNamespace,
		Title:   title,
		Data:    portfolioDataXML{CurrencyCode: strings.ToUpper(currencyCode)},
	})
}

// EncodeTransaction builds the Atom entry for a buy or sell.
func EncodeTransaction(tx models.Transaction) ([]byte, error) {
	code := strings.ToUpper(tx.CurrencyCode)
	return xml.Marshal(transactionEntryXML{
		Xmlns:   atomNamespace,
		XmlnsGF: financeNamespace,
		XmlnsGD: gdataNamespace,
		Data: transactionDataXML{
			Date:       tx.Timestamp.UTC().Format(timestampLayout),
			Shares:     formatFloat(tx.Shares),
			Type:       tx.Kind.String(),
			Commission: moneyHolder{Money: moneyXML{Amount: formatFloat(tx.Commission), CurrencyCode: code}},
			Price:      moneyHolder{Money: moneyXML{Amount: formatFloat(tx.Price), CurrencyCode: code}},
		},
	})
}

// formatFloat writes f as a float literal: 500 becomes "500.0".
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
