package parsers

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

// xmlNode is a generic XML element tree.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

// XMLParser flattens record-style XML into a table. It first looks for
// repeating, similarly-shaped children of the root (a typical data export);
// failing that, it falls back to the most frequently repeated element tag
// anywhere in the document.
type XMLParser struct {
	logger *zap.Logger
}

func NewXMLParser(logger *zap.Logger) *XMLParser {
	return &XMLParser{logger: logger.Named("xml-parser")}
}

func (p *XMLParser) Parse(name string, r io.Reader) (*models.Table, error) {
	var root xmlNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}

	rows := extractRecordRows(&root)
	if len(rows) == 0 {
		rows = extractRepeatedTagRows(&root)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNoData
	}

	header, records := flattenRows(rows)
	p.logger.Info("Parsed XML file",
		zap.String("name", name),
		zap.Int("columns", len(header)),
		zap.Int("rows", len(records)))

	return tableFromRecords(name, header, records), nil
}

// orderedRow is one record with columns in first-seen order.
type orderedRow struct {
	keys   []string
	values map[string]string
}

func newOrderedRow() *orderedRow {
	return &orderedRow{values: make(map[string]string)}
}

func (r *orderedRow) set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// extractRecordRows handles the repeating-children shape: the root's children
// are rows when most of them share the first child's element tags.
func extractRecordRows(root *xmlNode) []*orderedRow {
	if len(root.Children) < 2 {
		return nil
	}

	firstTags := make(map[string]struct{})
	for i := range root.Children[0].Children {
		firstTags[root.Children[0].Children[i].XMLName.Local] = struct{}{}
	}
	if len(firstTags) == 0 {
		return nil
	}

	var similar []*xmlNode
	for i := range root.Children {
		child := &root.Children[i]
		shared := 0
		for j := range child.Children {
			if _, ok := firstTags[child.Children[j].XMLName.Local]; ok {
				shared++
			}
		}
		if float64(shared)/float64(len(firstTags)) > 0.5 {
			similar = append(similar, child)
		}
	}
	if len(similar) < 2 {
		return nil
	}

	rows := make([]*orderedRow, 0, len(similar))
	for _, child := range similar {
		row := newOrderedRow()
		for i := range child.Children {
			sub := &child.Children[i]
			row.set(sub.XMLName.Local, strings.TrimSpace(sub.Content))
		}
		for _, attr := range child.Attrs {
			row.set(child.XMLName.Local+"_"+attr.Name.Local, attr.Value)
		}
		rows = append(rows, row)
	}
	return rows
}

// extractRepeatedTagRows falls back to the most frequent repeated element tag
// anywhere in the tree, treating each occurrence as a row.
func extractRepeatedTagRows(root *xmlNode) []*orderedRow {
	counts := make(map[string]int)
	var tagOrder []string
	walk(root, func(n *xmlNode) {
		tag := n.XMLName.Local
		if counts[tag] == 0 {
			tagOrder = append(tagOrder, tag)
		}
		counts[tag]++
	})

	rowTag := ""
	best := 1
	for _, tag := range tagOrder {
		if counts[tag] > best {
			rowTag = tag
			best = counts[tag]
		}
	}
	if rowTag == "" {
		return nil
	}

	var rows []*orderedRow
	walk(root, func(n *xmlNode) {
		if n.XMLName.Local != rowTag {
			return
		}
		row := newOrderedRow()
		if text := strings.TrimSpace(n.Content); text != "" {
			row.set(rowTag, text)
		}
		for _, attr := range n.Attrs {
			row.set(rowTag+"_"+attr.Name.Local, attr.Value)
		}
		for i := range n.Children {
			child := &n.Children[i]
			row.set(child.XMLName.Local, strings.TrimSpace(child.Content))
		}
		if len(row.keys) > 0 {
			rows = append(rows, row)
		}
	})
	return rows
}

func walk(n *xmlNode, visit func(*xmlNode)) {
	visit(n)
	for i := range n.Children {
		walk(&n.Children[i], visit)
	}
}

// flattenRows produces a header (union of keys in first-seen order) and
// aligned string records.
func flattenRows(rows []*orderedRow) (header []string, records [][]string) {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for _, k := range row.keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				header = append(header, k)
			}
		}
	}
	for _, row := range rows {
		record := make([]string, len(header))
		for i, k := range header {
			record[i] = row.values[k]
		}
		records = append(records, record)
	}
	return header, records
}
