package signer

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// excC14N serializa el elemento con Exclusive XML Canonicalization 1.0.
// El canonicalizador solo ve las declaraciones del propio elemento, por eso
// se trabaja sobre una copia con los namespaces heredados ya declarados.
func excC14N(el *etree.Element) ([]byte, error) {
	return dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("").Canonicalize(withScopedNamespaces(el))
}

// digestB64 SHA-256 en base64.
func digestB64(data []byte) string {
	h := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(h[:])
}

// withScopedNamespaces copia el elemento y le agrega las declaraciones xmlns
// de sus ancestros que no estén redefinidas más abajo.
func withScopedNamespaces(el *etree.Element) *etree.Element {
	cp := el.Copy()
	declared := make(map[string]bool)
	for _, a := range el.Attr {
		if prefix, ok := nsPrefix(a); ok {
			declared[prefix] = true
		}
	}
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			prefix, ok := nsPrefix(a)
			if !ok || declared[prefix] {
				continue
			}
			declared[prefix] = true
			if prefix == "" {
				cp.CreateAttr("xmlns", a.Value)
			} else {
				cp.CreateAttr("xmlns:"+prefix, a.Value)
			}
		}
	}
	return cp
}

// nsPrefix indica si el atributo es una declaración de namespace y su prefijo
// ("" para el namespace por defecto).
func nsPrefix(a etree.Attr) (string, bool) {
	switch {
	case a.Space == "xmlns":
		return a.Key, true
	case a.Space == "" && a.Key == "xmlns":
		return "", true
	}
	return "", false
}

// findByID busca en profundidad el elemento con atributo Id igual a id.
func findByID(el *etree.Element, id string) *etree.Element {
	if el.SelectAttrValue("Id", "") == id {
		return el
	}
	for _, c := range el.ChildElements() {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// isSignature indica si el elemento es un ds:Signature.
func isSignature(el *etree.Element) bool {
	return el.Tag == "Signature" && el.NamespaceURI() == NamespaceDS
}

// findSignature primer ds:Signature del árbol.
func findSignature(el *etree.Element) *etree.Element {
	if isSignature(el) {
		return el
	}
	for _, c := range el.ChildElements() {
		if found := findSignature(c); found != nil {
			return found
		}
	}
	return nil
}

// removeSignatures aplica la transformación enveloped-signature sobre una copia.
func removeSignatures(el *etree.Element, signatureID string) {
	for _, c := range el.ChildElements() {
		if isSignature(c) && (signatureID == "" || c.SelectAttrValue("Id", "") == signatureID) {
			el.RemoveChild(c)
			continue
		}
		removeSignatures(c, signatureID)
	}
}

// referenceDigest digest de la referencia URI ("" = documento completo,
// "#id" = elemento con ese Id).
func referenceDigest(doc *etree.Document, uri string, enveloped bool, signatureID string) (string, error) {
	var target *etree.Element
	if uri == "" {
		target = doc.Root()
	} else if len(uri) > 1 && uri[0] == '#' {
		target = findByID(doc.Root(), uri[1:])
	}
	if target == nil {
		return "", errReferenceNotFound(uri)
	}
	cp := withScopedNamespaces(target)
	if enveloped {
		removeSignatures(cp, signatureID)
	}
	canonical, err := dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("").Canonicalize(cp)
	if err != nil {
		return "", err
	}
	return digestB64(canonical), nil
}
