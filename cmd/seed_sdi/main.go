// seed_sdi genera lo script SQL per popolare la tabella di riferimento dei
// codici di errore SDI a partire dall'elenco XML pubblicato dall'Agenzia
// delle Entrate. La tabella serve da consultazione; il classificatore usa il
// catalogo incorporato nel binario.
//
// Uso: go run ./cmd/seed_sdi [percorso/ErroriSDI.xml]
// Di default cerca ErroriSDI.xml nella directory corrente.
// Scrive: internal/infrastructure/postgres/migrations/011_seed_sdi_errors.sql
package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type elenco struct {
	Tabella struct {
		Errori []errore `xml:"errore"`
	} `xml:"tabella"`
}

type errore struct {
	Codice      string `xml:"codice,attr"`
	Descrizione string `xml:"descrizione,attr"`
	Categoria   struct {
		Codice string `xml:"codice,attr"`
		Nome   string `xml:"nome,attr"`
	} `xml:"categoria"`
}

func main() {
	xmlPath := "ErroriSDI.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	f, err := os.Open(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Apertura XML: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	// L'elenco arriva codificato ISO-8859-1 (accenti nelle descrizioni).
	var e elenco
	dec := xml.NewDecoder(f)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if err := dec.Decode(&e); err != nil {
		fmt.Fprintf(os.Stderr, "Decodifica XML: %v\n", err)
		os.Exit(1)
	}

	// Categorie uniche: (codice, nome)
	catMap := make(map[string]string)
	var errs []struct{ codice, descrizione, categoria string }
	for _, v := range e.Tabella.Errori {
		if v.Codice == "" || v.Descrizione == "" || v.Categoria.Codice == "" || v.Categoria.Nome == "" {
			continue
		}
		catMap[v.Categoria.Codice] = v.Categoria.Nome
		errs = append(errs, struct{ codice, descrizione, categoria string }{
			codice:      strings.TrimSpace(v.Codice),
			descrizione: strings.TrimSpace(v.Descrizione),
			categoria:   strings.TrimSpace(v.Categoria.Codice),
		})
	}

	// Categorie ordinate per codice, per output stabile
	var catCodes []string
	for c := range catMap {
		catCodes = append(catCodes, c)
	}
	sort.Strings(catCodes)

	moduleRoot := findModuleRoot()
	outPath := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations", "011_seed_sdi_errors.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Creazione file: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	out.WriteString("-- Codici di errore SDI (scarto e notifica)\n")
	out.WriteString("-- Generato da ErroriSDI.xml (elenco Agenzia delle Entrate)\n\n")

	out.WriteString("-- 1. Categorie\n")
	out.WriteString("INSERT INTO sdi_error_categories (code, name) VALUES\n")
	for i, c := range catCodes {
		name := escapeSQL(catMap[c])
		if i < len(catCodes)-1 {
			fmt.Fprintf(out, "  ('%s', '%s'),\n", c, name)
		} else {
			fmt.Fprintf(out, "  ('%s', '%s')\n", c, name)
		}
	}
	out.WriteString("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;\n\n")

	// 2. Codici di errore con subquery alla categoria
	out.WriteString("-- 2. Codici di errore\n")
	for _, v := range errs {
		desc := escapeSQL(v.descrizione)
		fmt.Fprintf(out, "INSERT INTO sdi_error_codes (category_id, code, description)\n")
		fmt.Fprintf(out, "SELECT id, '%s', '%s' FROM sdi_error_categories WHERE code = '%s'\n",
			v.codice, desc, v.categoria)
		out.WriteString("ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description;\n")
	}

	fmt.Printf("Generato %s: %d categorie, %d codici\n", outPath, len(catCodes), len(errs))
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
