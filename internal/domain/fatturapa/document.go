// Package fatturapa modella il documento FatturaPA come albero immutabile di
// nodi tipizzati, serializzato in un solo passaggio. L'ordine dei figli è
// quello di costruzione: i vincoli di sequenza dello schema XSD (es. l'ordine
// dei figli di DatiGeneraliDocumento) diventano così testabili senza DOM.
package fatturapa

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Namespace e radice FatturaPA v1.2.1.
const (
	Namespace     = "http://ivaservizi.agenziaentrate.gov.it/docs/xsd/fatture/v1.2"
	NamespaceDS   = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXSI  = "http://www.w3.org/2001/XMLSchema-instance"
	RootName      = "p:FatturaElettronica"
	SchemaVersion = "1.2.1"
)

// Attr è un attributo XML.
type Attr struct {
	Name  string
	Value string
}

// Element è un nodo dell'albero documento. Un nodo ha testo oppure figli,
// mai entrambi. I costruttori restituiscono sempre un nodo nuovo: l'albero
// non viene mai mutato dopo la costruzione.
type Element struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Element
}

// El costruisce un elemento con figli. I figli nil vengono scartati: i blocchi
// condizionali dello schema si esprimono con funzioni che restituiscono nil.
func El(name string, children ...*Element) *Element {
	kept := make([]*Element, 0, len(children))
	for _, c := range children {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &Element{Name: name, Children: kept}
}

// Text costruisce un elemento foglia con contenuto testuale.
func Text(name, value string) *Element {
	return &Element{Name: name, Text: value}
}

// TextOpt come Text, ma restituisce nil se il valore è vuoto
// (l'elemento opzionale non viene emesso).
func TextOpt(name, value string) *Element {
	if value == "" {
		return nil
	}
	return &Element{Name: name, Text: value}
}

// WithAttrs restituisce una copia dell'elemento con gli attributi indicati.
func (e *Element) WithAttrs(attrs ...Attr) *Element {
	cp := *e
	cp.Attrs = append(append([]Attr{}, e.Attrs...), attrs...)
	return &cp
}

// ChildNames restituisce i nomi dei figli nell'ordine di emissione
// (usato nei test dei vincoli di sequenza XSD).
func (e *Element) ChildNames() []string {
	names := make([]string, len(e.Children))
	for i, c := range e.Children {
		names[i] = c.Name
	}
	return names
}

// Find restituisce il primo discendente raggiunto dal percorso di nomi
// indicato (figlio diretto per ogni passo), oppure nil.
func (e *Element) Find(path ...string) *Element {
	cur := e
	for _, name := range path {
		var next *Element
		for _, c := range cur.Children {
			if c.Name == name {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// Serialize serializza l'albero in un solo passaggio con dichiarazione XML e
// indentazione a due spazi. Ogni nodo di testo e ogni valore di attributo
// viene sottoposto a escaping per & < > " '.
func Serialize(root *Element) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("fatturapa: documento vuoto")
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := writeElement(&buf, root, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeElement(buf *bytes.Buffer, e *Element, depth int) error {
	indent(buf, depth)
	buf.WriteByte('<')
	buf.WriteString(e.Name)
	for _, a := range e.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		if err := xml.EscapeText(buf, []byte(a.Value)); err != nil {
			return err
		}
		buf.WriteByte('"')
	}

	if len(e.Children) == 0 && e.Text == "" {
		buf.WriteString("/>\n")
		return nil
	}

	buf.WriteByte('>')
	if len(e.Children) == 0 {
		if err := xml.EscapeText(buf, []byte(e.Text)); err != nil {
			return err
		}
		buf.WriteString("</")
		buf.WriteString(e.Name)
		buf.WriteString(">\n")
		return nil
	}

	buf.WriteByte('\n')
	for _, c := range e.Children {
		if err := writeElement(buf, c, depth+1); err != nil {
			return err
		}
	}
	indent(buf, depth)
	buf.WriteString("</")
	buf.WriteString(e.Name)
	buf.WriteString(">\n")
	return nil
}

func indent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}
