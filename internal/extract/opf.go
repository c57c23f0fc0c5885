package extract

import (
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type opfPackage struct {
	Manifest struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Href string `xml:"href,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// ReadingOrder returns the unpacked book's documents in spine order. When no
// OPF file exists or it cannot be parsed, it falls back to a name sort of the
// HTML documents, which matches how most converters number their output.
func ReadingOrder(root string) ([]string, error) {
	if docs, err := spineOrder(root); err == nil && len(docs) > 0 {
		return docs, nil
	}
	docs := htmlDocuments(root)
	if len(docs) == 0 {
		return nil, fmt.Errorf("no readable documents under %s", root)
	}
	return docs, nil
}

func spineOrder(root string) ([]string, error) {
	opfPath, err := findOPF(root)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(opfPath)
	if err != nil {
		return nil, fmt.Errorf("read opf: %w", err)
	}
	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse opf: %w", err)
	}

	hrefs := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefs[item.ID] = item.Href
	}

	opfDir := filepath.Dir(opfPath)
	var docs []string
	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		full := filepath.Join(opfDir, filepath.FromSlash(href))
		if info, statErr := os.Stat(full); statErr == nil && info.Mode().IsRegular() {
			docs = append(docs, full)
		}
	}
	return docs, nil
}

func findOPF(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found == "" && !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".opf") {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no opf file under %s", root)
	}
	return found, nil
}

func htmlDocuments(root string) []string {
	var docs []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".xhtml", ".htm":
			docs = append(docs, path)
		}
		return nil
	})
	sort.Strings(docs)
	return docs
}
