package entity

// Issuer contribuyente emisor (datos del RUC ante la SET).
type Issuer struct {
	RUC           string // sin DV
	DV            string
	Name          string
	TradeName     string
	TaxpayerType  int // 1 física, 2 jurídica
	RegimeType    int
	Phone         string
	Email         string
	Activities    []EconomicActivity
	Establishment Establishment
}

// EconomicActivity actividad económica registrada en el RUC.
type EconomicActivity struct {
	Code        string
	Description string
}

// Establishment establecimiento y punto de expedición desde donde se emite.
type Establishment struct {
	Code        string // EEE
	PointOfSale string // PPP
	Address     Address
}
