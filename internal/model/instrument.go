package model

import "strings"

// Instrument is a tradable stock identified by an exchange-qualified code.
type Instrument struct {
	Code   string `json:"code" yaml:"code"`
	Name   string `json:"name" yaml:"name"`
	Sector string `json:"sector" yaml:"sector"`
}

// ExchangeSuffix is appended to IDX tickers in the prediction store.
const ExchangeSuffix = ".JK"

// Ticker returns the bare ticker, e.g. "BBCA" for "BBCA.JK".
func (i Instrument) Ticker() string { return TrimExchange(i.Code) }

// TrimExchange strips the exchange suffix from a code.
func TrimExchange(code string) string {
	return strings.TrimSuffix(code, ExchangeSuffix)
}

// DefaultInstruments is the built-in IDX universe.
var DefaultInstruments = []Instrument{
	{Code: "BBCA.JK", Name: "Bank Central Asia Tbk", Sector: "Finance"},
	{Code: "BBRI.JK", Name: "Bank Rakyat Indonesia (Persero) Tbk", Sector: "Finance"},
	{Code: "TLKM.JK", Name: "Telkom Indonesia (Persero) Tbk", Sector: "Infrastructure"},
	{Code: "BMRI.JK", Name: "Bank Mandiri (Persero) Tbk", Sector: "Finance"},
	{Code: "ASII.JK", Name: "Astra International Tbk", Sector: "Conglomerate"},
	{Code: "GOTO.JK", Name: "GoTo Gojek Tokopedia Tbk", Sector: "Tech"},
	{Code: "UNVR.JK", Name: "Unilever Indonesia Tbk", Sector: "Consumer"},
	{Code: "ICBP.JK", Name: "Indofood CBP Sukses Makmur Tbk", Sector: "Consumer"},
	{Code: "ADRO.JK", Name: "Adaro Energy Indonesia Tbk", Sector: "Energy"},
	{Code: "BBNI.JK", Name: "Bank Negara Indonesia (Persero) Tbk", Sector: "Finance"},
	{Code: "UNTR.JK", Name: "United Tractors Tbk", Sector: "Industrial"},
	{Code: "AMRT.JK", Name: "Sumber Alfaria Trijaya Tbk", Sector: "Consumer"},
	{Code: "MDKA.JK", Name: "Merdeka Copper Gold Tbk", Sector: "Basic Materials"},
	{Code: "KLBF.JK", Name: "Kalbe Farma Tbk", Sector: "Healthcare"},
	{Code: "INCO.JK", Name: "Vale Indonesia Tbk", Sector: "Basic Materials"},
	{Code: "PGAS.JK", Name: "Perusahaan Gas Negara Tbk", Sector: "Energy"},
	{Code: "PTBA.JK", Name: "Bukit Asam Tbk", Sector: "Energy"},
	{Code: "BUKA.JK", Name: "Bukalapak.com Tbk", Sector: "Tech"},
	{Code: "BRIS.JK", Name: "Bank Syariah Indonesia Tbk", Sector: "Finance"},
	{Code: "ANTM.JK", Name: "Aneka Tambang Tbk", Sector: "Basic Materials"},
}

// DefaultSelection is the instrument selected when the universe loads.
const DefaultSelection = "BBCA.JK"
