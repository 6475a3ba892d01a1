package sifen

import "time"

// CertificateMetadata datos del certificado usado en la firma.
type CertificateMetadata struct {
	Serial    string    `json:"serial"` // decimal
	SerialHex string    `json:"serial_hex"`
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
}

// SignedDocument resultado de firmar un DE.
type SignedDocument struct {
	XML         []byte
	DigestValue string // DigestValue de la referencia al DE, base64
	Certificate CertificateMetadata
}

// Signer firma el XML canónico del DE con XAdES-BES.
type Signer interface {
	// Sign recibe el rDE sin firma y devuelve el documento con ds:Signature
	// insertado a continuación del elemento DE.
	Sign(canonicalXML []byte) (*SignedDocument, error)
}
